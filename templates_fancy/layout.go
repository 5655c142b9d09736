package templates

import (
	"fmt"
	"time"

	g "github.com/maragudk/gomponents"
	. "github.com/maragudk/gomponents/html"

	"inkwell/constants"
)

type CurrentUser struct {
	ID   uint
	Name string
}

type LayoutProps struct {
	PageTitle   string
	Description string
	CurrentUser *CurrentUser
}

func NavbarComponent(props LayoutProps) g.Node {
	return Nav(Class("nav"),
		Div(Class("nav-left"),
			Div(Class("brand"), A(Href("/"), g.Text(constants.APP_NAME))),
		),
		Div(Class("nav-links nav-right"),
			g.If(props.CurrentUser != nil && props.CurrentUser.ID != 0,
				g.Group([]g.Node{
					Span(g.Text("Signed in as ")),
					userLink(props.CurrentUser),
				}),
			),
		),
	)
}

func userLink(user *CurrentUser) g.Node {
	if user == nil {
		return g.Text("")
	}
	return A(Href(fmt.Sprintf("/u/%d", user.ID)), g.Text(user.Name))
}

func FooterComponent() g.Node {
	return Footer(Class("footer"),
		P(Class("with-love"),
			Small(g.Textf("%s © %d", constants.APP_NAME, time.Now().Year())),
		),
	)
}

func CookieBannerComponent() g.Node {
	return g.Raw(`
		<div id="cookie-banner"
			style="display: none; position: fixed; bottom: 0; left:0; width: 100%; background-color: #f9ed69; padding: 20px 0; text-align: center;">
			<p style="margin: 0; padding: 0; color: black;">
				This website only uses a cookie to remember who is signed in.
			</p>
			<div style="margin-top: 10px;">
				<button id="accept-cookies" style="padding: 10px;">Got it</button>
			</div>
		</div>
		<script>
			(function () {
				if (!localStorage.getItem('acceptedCookies')) {
					document.getElementById('cookie-banner').style.display = 'block';
				}
				document.getElementById('accept-cookies').onclick = function () {
					localStorage.setItem('acceptedCookies', 'true');
					document.getElementById('cookie-banner').style.display = 'none';
				}
			})()
		</script>
	`)
}

func Layout(props LayoutProps, children ...g.Node) g.Node {
	pageTitle := constants.APP_NAME
	if props.PageTitle != "" {
		pageTitle = props.PageTitle + " | " + constants.APP_NAME
	}

	return Doctype(
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
				g.If(props.Description != "", Meta(Name("description"), Content(props.Description))),
				Link(Rel("icon"), Type("image/png"), Href("data:image/svg+xml,<svg xmlns=%22http://www.w3.org/2000/svg%22 viewBox=%220 0 100 100%22><text y=%22.9em%22 font-size=%2290%22>🖋️</text></svg>")),
				Link(Rel("stylesheet"), Href("https://unpkg.com/chota@latest")),
				TitleEl(g.Text(pageTitle)),
			),
			Body(
				Div(Class("container"), Style("margin-top: 1.5em;"),
					NavbarComponent(props),
					Main(
						g.Group(children),
					),
				),
				FooterComponent(),
				CookieBannerComponent(),
			),
		),
	)
}
