package main

import "github.com/k1-end/elastic-logger/cmd"

func main() {
	cmd.Execute()
}
