package main

import "github.com/khanhnv2901/seca-pqc/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
