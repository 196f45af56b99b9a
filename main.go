package main

import "github.com/MeKo-Tech/pressroom/internal/cmd"

func main() {
	cmd.Execute()
}
