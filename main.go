package main

import "github.com/product-os/autumndb-sub002/cmd"

func main() {
	cmd.Execute()
}
