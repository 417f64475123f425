package errs

import "fmt"

type ValidationError struct {
	Err error
}

func (t ValidationError) Error() string {
	return fmt.Sprintf("validation error: %v", t.Err)
}

func (t ValidationError) Unwrap() error {
	return t.Err
}

type NotFoundError struct {
	Err error
}

func (t NotFoundError) Error() string {
	return fmt.Sprintf("not found: %v", t.Err)
}

func (t NotFoundError) Unwrap() error {
	return t.Err
}

// LockedError signals a terminal state conflict, never retried.
type LockedError struct {
	Err error
}

func (t LockedError) Error() string {
	return fmt.Sprintf("submission is locked: %v", t.Err)
}

func (t LockedError) Unwrap() error {
	return t.Err
}

type ExpiredError struct {
	Err error
}

func (t ExpiredError) Error() string {
	return fmt.Sprintf("submission link expired: %v", t.Err)
}

func (t ExpiredError) Unwrap() error {
	return t.Err
}

// RenderError is retried only by a new caller, never automatically.
type RenderError struct {
	Err error
}

func (t RenderError) Error() string {
	return fmt.Sprintf("render error: %v", t.Err)
}

func (t RenderError) Unwrap() error {
	return t.Err
}

// DeliveryError is terminal after the single automatic retry.
type DeliveryError struct {
	Err error
}

func (t DeliveryError) Error() string {
	return fmt.Sprintf("delivery error: %v", t.Err)
}

func (t DeliveryError) Unwrap() error {
	return t.Err
}
