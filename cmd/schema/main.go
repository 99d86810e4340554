package main

import (
	"log"
	"os"

	"arena/internal/schemagen"
)

func main() {
	if err := schemagen.Execute(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
