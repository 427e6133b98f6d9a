package main

import "github.com/shouni/go-jaundice/cmd"

func main() {
	cmd.Execute()
}
