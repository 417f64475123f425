package main

import "github.com/formlock/formlock-backend/cmd"

func main() {
	cmd.Init()
}
