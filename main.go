package main

import "github.com/killallgit/promptspec/cmd"

func main() {
	cmd.Execute()
}
