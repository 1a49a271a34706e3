package main

import (
	"log"

	"github.com/clusterfit/vikhlinin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
