package offload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotImage          = errors.New("embedded data is not an image")
	ErrMalformedDataURI  = errors.New("malformed data uri")
	ErrUnresolvableImage = errors.New("blob image sources cannot be uploaded")
)

// Storage stores an object and returns its permanent public URL.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type Result struct {
	Content  string
	Uploaded []string
}

// Offloader moves images embedded in post HTML into object storage.
type Offloader struct {
	storage Storage
	prefix  string
	newName func() string
}

func New(storage Storage) *Offloader {
	return &Offloader{storage: storage, prefix: "posts/", newName: uuid.NewString}
}

// Rewrite uploads every data: image in content concurrently and replaces
// each reference with the stored URL. External sources are left alone.
// Any failed upload fails the whole rewrite; objects already stored are not
// removed.
func (o *Offloader) Rewrite(ctx context.Context, content string) (Result, error) {
	sources, err := embeddedSources(content)
	if err != nil {
		return Result{}, err
	}
	if len(sources) == 0 {
		return Result{Content: content}, nil
	}

	var mu sync.Mutex
	urls := make(map[string]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			data, err := decodeDataURI(src)
			if err != nil {
				return err
			}
			kind := mimetype.Detect(data)
			if !strings.HasPrefix(kind.String(), "image/") {
				return ErrNotImage
			}
			key := o.prefix + o.newName() + kind.Extension()
			location, err := o.storage.Put(gctx, key, kind.String(), data)
			if err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			mu.Lock()
			urls[src] = location
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	uploaded := make([]string, 0, len(sources))
	for _, src := range sources {
		uploaded = append(uploaded, urls[src])
	}
	return Result{Content: replaceSources(content, urls), Uploaded: uploaded}, nil
}

// replaceSources re-emits content token by token, rendering again only the
// <img> tags whose src was uploaded. Everything else is copied byte for byte.
func replaceSources(content string, urls map[string]string) string {
	var b strings.Builder
	b.Grow(len(content))

	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		// Token lowercases the tag name in the buffer, so copy first.
		raw := string(z.Raw())
		if tt == html.ErrorToken {
			b.WriteString(raw)
			return b.String()
		}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			token := z.Token()
			if token.DataAtom == atom.Img && swapSource(&token, urls) {
				b.WriteString(token.String())
				continue
			}
		}
		b.WriteString(raw)
	}
}

func swapSource(token *html.Token, urls map[string]string) bool {
	swapped := false
	for i, attr := range token.Attr {
		if attr.Key != "src" {
			continue
		}
		if location, ok := urls[strings.TrimSpace(attr.Val)]; ok {
			token.Attr[i].Val = location
			swapped = true
		}
	}
	return swapped
}

// embeddedSources lists the distinct data: sources of <img> tags in
// document order.
func embeddedSources(content string) ([]string, error) {
	var sources []string
	seen := map[string]bool{}

	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return sources, nil
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		token := z.Token()
		if token.DataAtom != atom.Img {
			continue
		}
		for _, attr := range token.Attr {
			if attr.Key != "src" {
				continue
			}
			src := strings.TrimSpace(attr.Val)
			switch {
			case hasScheme(src, "blob:"):
				return nil, ErrUnresolvableImage
			case hasScheme(src, "data:"):
				if !seen[src] {
					seen[src] = true
					sources = append(sources, src)
				}
			}
		}
	}
}

func hasScheme(src, scheme string) bool {
	return len(src) >= len(scheme) && strings.EqualFold(src[:len(scheme)], scheme)
}

// decodeDataURI returns the payload of data:[<mediatype>][;base64],<data>.
func decodeDataURI(src string) ([]byte, error) {
	header, payload, ok := strings.Cut(src[len("data:"):], ",")
	if !ok {
		return nil, ErrMalformedDataURI
	}
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		data, err := base64.StdEncoding.DecodeString(stripSpace(payload))
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(stripSpace(payload), "="))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
	}
	return []byte(data), nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
