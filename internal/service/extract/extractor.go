// Package extract normalizes heterogeneous search-provider payloads into posts.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"SignalPull/internal/domain/models"
	xutil "SignalPull/pkg/util"

	"github.com/google/uuid"
)

const UnknownHandle = "unknown"

// Item is one raw provider record.
type Item = map[string]interface{}

// FieldFunc returns a value for a field or ok=false to defer to the next candidate.
type FieldFunc func(Item) (string, bool)

// Path builds a FieldFunc reading a dotted path of nested objects.
func Path(path string) FieldFunc {
	keys := strings.Split(path, ".")
	return func(it Item) (string, bool) {
		var cur interface{} = it
		for _, k := range keys {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			cur, ok = m[k]
			if !ok {
				return "", false
			}
		}
		s := scalar(cur)
		return s, s != ""
	}
}

// First tries fns in order and returns the first non-empty value.
func First(it Item, fns ...FieldFunc) (string, bool) {
	for _, fn := range fns {
		if v, ok := fn(it); ok {
			return v, true
		}
	}
	return "", false
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case fmt.Stringer:
		return t.String()
	default:
		return ""
	}
}

const tweetResult = "content.itemContent.tweet_results.result"

var (
	TextPaths = []FieldFunc{
		Path("full_text"),
		Path("text"),
		Path("legacy.full_text"),
		Path("legacy.text"),
		Path(tweetResult + ".legacy.full_text"),
		Path("tweet.legacy.full_text"),
		Path("note_tweet.note_tweet_results.result.text"),
		Path("caption"),
		Path("rawContent"),
		Path("renderedContent"),
	}
	DatePaths = []FieldFunc{
		Path("created_at"),
		Path("createdAt"),
		Path("legacy.created_at"),
		Path("tweet.legacy.created_at"),
		Path(tweetResult + ".legacy.created_at"),
	}
	IDPaths = []FieldFunc{
		Path("id_str"),
		Path("id"),
		Path("rest_id"),
		Path("legacy.id_str"),
		Path("tweet.rest_id"),
		Path(tweetResult + ".rest_id"),
	}
	URLPaths = []FieldFunc{
		Path("url"),
		Path("tweetUrl"),
		Path("permanentUrl"),
	}
)

// author is one candidate location of the user object.
type author struct {
	handle FieldFunc
	name   []FieldFunc
	image  []FieldFunc
}

var authorPaths = []author{
	{Path("user.screen_name"), []FieldFunc{Path("user.name")}, []FieldFunc{Path("user.profile_image_url_https")}},
	{Path("author.userName"), []FieldFunc{Path("author.name"), Path("author.displayName")},
		[]FieldFunc{Path("author.profilePicture"), Path("author.profileImageUrl")}},
	{Path("core.user_results.result.legacy.screen_name"), []FieldFunc{Path("core.user_results.result.legacy.name")},
		[]FieldFunc{Path("core.user_results.result.legacy.profile_image_url_https")}},
	{Path("tweet.core.user_results.result.legacy.screen_name"), []FieldFunc{Path("tweet.core.user_results.result.legacy.name")},
		[]FieldFunc{Path("tweet.core.user_results.result.legacy.profile_image_url_https")}},
}

// Extractor turns items into posts. Now and NewID are swappable for tests.
type Extractor struct {
	Now   func() time.Time
	NewID func() string
}

func New() *Extractor {
	return &Extractor{
		Now:   time.Now,
		NewID: func() string { return "unknown_" + uuid.NewString() },
	}
}

// Extract never fails; missing fields fall back to synthetic defaults and an empty
// Text signals the caller to drop the item.
func (e *Extractor) Extract(it Item) models.Post {
	p := models.Post{}
	p.Text, _ = First(it, TextPaths...)

	p.CreatedAt = e.Now()
	if raw, ok := First(it, DatePaths...); ok {
		if t, ok := xutil.ParseTime(raw); ok {
			p.CreatedAt = t
		}
	}

	if id, ok := First(it, IDPaths...); ok {
		p.ID = id
	} else {
		p.ID = e.NewID()
	}

	p.Handle = UnknownHandle
	p.DisplayName = "Unknown"
	for _, a := range authorPaths {
		h, ok := a.handle(it)
		if !ok {
			continue
		}
		p.Handle = h
		p.DisplayName = h
		if name, ok := First(it, a.name...); ok {
			p.DisplayName = name
		}
		p.AvatarURL, _ = First(it, a.image...)
		break
	}

	if u, ok := First(it, URLPaths...); ok {
		p.URL = u
	} else {
		p.URL = fmt.Sprintf("https://twitter.com/%s/status/%s", p.Handle, p.ID)
	}
	return p
}

// IsPlaceholder reports provider rows that stand for an empty or failed query.
func IsPlaceholder(it Item) bool {
	if v, ok := it["noResults"]; ok && v != nil && v != false {
		return true
	}
	if v, ok := it["error"]; ok && v != nil && v != "" {
		return true
	}
	return false
}
