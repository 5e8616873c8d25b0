package main

import "github.com/spiralover/mailer-server/cmd"

func main() {
	cmd.Execute()
}
