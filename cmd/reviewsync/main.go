package main

import "reviewsync/cmd/reviewsync/cmd"

func main() {
	cmd.Execute()
}
