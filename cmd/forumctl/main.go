package main

import (
	"log"

	"github.com/brforum/forum-backend/internal/tools/forumctl"
)

func main() {
	if err := forumctl.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
