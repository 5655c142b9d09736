package site

import (
	"log"
	"net/http"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	g "github.com/maragudk/gomponents"

	"inkwell/database"
	templates "inkwell/templates_fancy"
)

func renderPage(w http.ResponseWriter, status int, page g.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(w); err != nil {
		log.Printf("Page render error: %v", err)
	}
}

func renderMarkdown(markdownStr string) g.Node {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(markdownStr))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	opts := html.RendererOptions{Flags: htmlFlags}
	renderer := html.NewRenderer(opts)

	return g.Raw(string(markdown.Render(doc, renderer)))
}

func renderPostBody(post *database.Post) g.Node {
	if post.Format == database.FormatMarkdown {
		return renderMarkdown(post.Content)
	}
	return g.Raw(post.Content)
}

func layoutProps(r *http.Request, pageTitle string) templates.LayoutProps {
	props := templates.LayoutProps{PageTitle: pageTitle}
	if user := getSignedInUserOrNil(r); user != nil {
		props.CurrentUser = &templates.CurrentUser{ID: user.ID, Name: user.Name}
	}
	return props
}

func toPostCard(p database.Post) templates.PostCard {
	meta := p.Meta.Data()
	card := templates.PostCard{
		Title:       p.Title,
		Slug:        p.Slug,
		Description: meta.Description,
		Image:       meta.Image,
		AuthorID:    p.AuthorID,
		AuthorName:  p.AuthorName(),
		CreatedAt:   p.CreatedAt,
		Draft:       !p.Published,
	}
	if p.Category != nil {
		card.CategoryName = p.Category.Name
	}
	for _, tag := range p.Tags {
		card.Tags = append(card.Tags, tag.Name)
	}
	return card
}

func toPostCards(posts []database.Post) []templates.PostCard {
	cards := make([]templates.PostCard, 0, len(posts))
	for _, p := range posts {
		cards = append(cards, toPostCard(p))
	}
	return cards
}
