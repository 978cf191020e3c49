package source

import (
	"context"
	"errors"
	"time"

	"github.com/elonfeng/hotboard/pkg/normalize"
)

// Platform identifies which hot list an item came from.
type Platform string

const (
	PlatformBaidu   Platform = "baidu"
	PlatformWeibo   Platform = "weibo"
	PlatformDouyin  Platform = "douyin"
	PlatformZhihu   Platform = "zhihu"
	PlatformCailian Platform = "cailian"
	PlatformRSS     Platform = "rss"
)

var (
	// ErrForbidden means the platform refused the request, usually because the
	// configured cookie expired.
	ErrForbidden = errors.New("forbidden by upstream")
	// ErrUpstream means the platform answered with an application level error.
	ErrUpstream = errors.New("upstream error")
)

// Source is the interface every hot list adapter implements. Fetch returns
// raw items keyed by canonical names where the adapter knows them (title,
// url, rank, heat_text, ...) plus platform specific keys for the routing
// policy to pick up.
type Source interface {
	Name() Platform
	Fetch(ctx context.Context) ([]normalize.Item, error)
}

// AllPlatforms returns every known platform in default collection order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformZhihu,
		PlatformWeibo,
		PlatformDouyin,
		PlatformBaidu,
		PlatformCailian,
		PlatformRSS,
	}
}

// Policies is the per-platform field routing table.
var Policies = map[Platform]normalize.Policy{
	PlatformWeibo: {
		TopicKeyField: "word_scheme",
		TagsField:     "labels",
		ExtraFields:   []string{"word_scheme"},
	},
	PlatformDouyin: {
		TopicKeyField: "sentence_id",
	},
	PlatformBaidu: {
		ExtraFields: []string{"avatar_url"},
	},
	PlatformZhihu: {
		ExtraFields: []string{"avatar_url", "answer_count", "follower_count"},
	},
	PlatformCailian: {
		ExtraFields: []string{"id", "ctime", "level", "comment_num"},
	},
	PlatformRSS: {
		TopicKeyField: "guid",
		TagsField:     "categories",
		ExtraFields:   []string{"feed_name"},
	},
}

// PolicyFor returns the routing policy of p; unknown platforms get the empty
// policy.
func PolicyFor(p Platform) normalize.Policy {
	return Policies[p]
}

func stamp() string {
	return time.Now().Format(normalize.TimeLayout)
}
