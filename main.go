package main

import "github.com/JimmyDurandWesolowski/pycom/cmd"

func main() {
	cmd.Execute()
}
