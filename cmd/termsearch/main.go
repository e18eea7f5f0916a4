package main

import "github.com/Adithya-Monish-Kumar-K/termsearch/internal/cli"

func main() {
	cli.Execute()
}
