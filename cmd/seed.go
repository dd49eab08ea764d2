package main

import (
	"context"
	"log"
	"math/rand"
	"strconv"
	"strings"

	"github.com/jaswdr/faker"

	"postboard/pkg/category"
	"postboard/pkg/comment"
	"postboard/pkg/post"
	"postboard/pkg/voting"
)

var f = faker.New()

// Generate fake content to have better UI experience.
func seed(ps *post.Service, categories category.Source) {
	ctx := context.Background()

	names, err := categories.All(ctx)
	if err != nil || len(names) == 0 {
		log.Println("seed: no categories, using defaults:", err)
		names = category.Defaults
	}

	// Author ids are fixed so they survive server reloads.
	authors := []string{}
	for i := 1; i <= 5; i++ {
		authors = append(authors, strconv.Itoa(i))
	}

	for i := 0; i <= 5; i++ {
		p, err := ps.Create(ctx, genPost(names), randAuthor(authors))
		if err != nil {
			log.Fatalln("seed: can't add post:", err)
		}

		for j := 0; j <= rand.Intn(5); j++ {
			if _, err := ps.AddComment(ctx, p.ID, comment.Draft{Body: genText()}, randAuthor(authors)); err != nil {
				log.Fatalln("seed: can't add comment:", err)
			}
		}

		for j := 0; j < rand.Intn(10); j++ {
			if _, err := ps.Vote(ctx, p.ID, voting.Up); err != nil {
				log.Fatalln("seed: can't vote:", err)
			}
		}
	}
}

func randCategories(names []string) []string {
	n := rand.Intn(2) + 1
	picked := []string{}
	for _, idx := range rand.Perm(len(names))[:min(n, len(names))] {
		picked = append(picked, names[idx])
	}
	return picked
}

func genTitle() string {
	return strings.Join(f.Lorem().Words(rand.Intn(5)+3), " ")
}

func genText() string {
	return f.Lorem().Paragraph(rand.Intn(3) + 2)
}

func genPost(names []string) post.Draft {
	return post.Draft{
		Title:       genTitle(),
		Description: genText(),
		Categories:  randCategories(names),
	}
}

func randAuthor(authors []string) string {
	return authors[rand.Intn(len(authors))]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
