package category

import "context"

// Defaults is the category table the service starts with.
var Defaults = []string{"programming", "music", "videos", "funny", "news", "fashion"}

type Source interface {
	All(ctx context.Context) ([]string, error)
}

// Static serves a fixed list.
type Static []string

func (s Static) All(context.Context) ([]string, error) {
	return append([]string{}, s...), nil
}
