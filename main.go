package main

import "github.com/yourusername/invoice-api/cmd"

func main() {
	cmd.Execute()
}
