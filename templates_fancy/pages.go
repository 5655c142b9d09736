package templates

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	g "github.com/maragudk/gomponents"
	. "github.com/maragudk/gomponents/html"
)

const dateLayout = "January 2, 2006"

type PostCard struct {
	Title        string
	Slug         string
	Description  string
	Image        string
	AuthorID     uint
	AuthorName   string
	CategoryName string
	Tags         []string
	CreatedAt    time.Time
	Draft        bool
}

type PaginationProps struct {
	BasePath    string
	Query       url.Values
	CurrentPage int
	TotalPages  int
	PrevPage    *int
	NextPage    *int
}

type HomePageProps struct {
	Layout     LayoutProps
	Search     string
	Posts      []PostCard
	Pagination PaginationProps
}

type PostPageProps struct {
	Layout LayoutProps
	Post   PostCard
	Body   g.Node
	Notice string
}

type AuthorPageProps struct {
	Layout     LayoutProps
	AuthorName string
	Posts      []PostCard
	Pagination PaginationProps
}

func HomePage(props HomePageProps) g.Node {
	return Layout(props.Layout,
		H1(g.Text("Latest posts")),
		FormEl(Method("get"), Action("/"),
			Input(Type("search"), Name("q"), Value(props.Search), Placeholder("Search titles")),
		),
		PostListComponent(props.Posts, "No posts yet."),
		PaginationComponent(props.Pagination),
	)
}

func PostPage(props PostPageProps) g.Node {
	post := props.Post
	return Layout(props.Layout,
		Article(Class("post"),
			H1(g.Text(post.Title)),
			PostMetaComponent(post),
			g.If(props.Notice != "", P(Class("text-error"), g.Text(props.Notice))),
			Div(Class("post-body"), props.Body),
		),
	)
}

func AuthorPage(props AuthorPageProps) g.Node {
	return Layout(props.Layout,
		H1(g.Textf("Posts by %s", props.AuthorName)),
		PostListComponent(props.Posts, "This author has not published anything yet."),
		PaginationComponent(props.Pagination),
	)
}

func NotFoundPage(layout LayoutProps, message string) g.Node {
	return Layout(layout,
		H1(g.Text("Not found")),
		P(g.Text(message)),
		P(A(Href("/"), g.Text("Back to the front page"))),
	)
}

func PostListComponent(posts []PostCard, empty string) g.Node {
	if len(posts) == 0 {
		return P(Em(g.Text(empty)))
	}
	items := make([]g.Node, 0, len(posts))
	for _, post := range posts {
		items = append(items, PostCardComponent(post))
	}
	return Div(Class("post-list"), g.Group(items))
}

func PostCardComponent(post PostCard) g.Node {
	return Div(Class("card"), Style("margin-bottom: 1em;"),
		H3(A(Href("/posts/"+url.PathEscape(post.Slug)), g.Text(post.Title))),
		PostMetaComponent(post),
		g.If(post.Description != "", P(g.Text(post.Description))),
	)
}

func PostMetaComponent(post PostCard) g.Node {
	nodes := []g.Node{
		g.Text(post.CreatedAt.Format(dateLayout)),
		g.Text(" by "),
		A(Href(fmt.Sprintf("/u/%d", post.AuthorID)), g.Text(post.AuthorName)),
	}
	if post.CategoryName != "" {
		nodes = append(nodes, g.Textf(" in %s", post.CategoryName))
	}
	if len(post.Tags) > 0 {
		nodes = append(nodes, g.Textf(" · %s", strings.Join(post.Tags, ", ")))
	}
	if post.Draft {
		nodes = append(nodes, g.Text(" "), Span(Class("tag is-small"), g.Text("draft")))
	}
	return P(Class("text-grey"), Small(g.Group(nodes)))
}

func PaginationComponent(props PaginationProps) g.Node {
	if props.TotalPages <= 1 {
		return g.Text("")
	}
	return Nav(Class("pagination row"),
		g.If(props.PrevPage != nil, A(Class("button outline"), Href(pageHref(props, props.PrevPage)), g.Text("← Newer"))),
		Span(Style("margin: 0 1em;"), g.Textf("Page %d of %d", props.CurrentPage, props.TotalPages)),
		g.If(props.NextPage != nil, A(Class("button outline"), Href(pageHref(props, props.NextPage)), g.Text("Older →"))),
	)
}

func pageHref(props PaginationProps, page *int) string {
	if page == nil {
		return props.BasePath
	}
	query := url.Values{}
	for key, values := range props.Query {
		query[key] = values
	}
	query.Set("page", fmt.Sprint(*page))
	return props.BasePath + "?" + query.Encode()
}
