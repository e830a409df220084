package cards

import (
	"context"
	"strings"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/files"
	"github.com/hpungsan/shelf/internal/notify"
)

// AddInput contains parameters for the Add operation.
type AddInput struct {
	Title       string
	Description string
	URL         string

	// Tags wins over TagText when non-empty
	Tags    []string
	TagText string // comma-separated, ex: "lang, reading"

	// Icon priority: IconURL, then IconFile, then Icon, then a generated
	// letter icon. IconFile is a local image stored as a data URL.
	IconURL  string
	IconFile string
	Icon     *card.Icon

	ShowIcon *bool // nil = true
}

// Add validates in, appends a new card and persists the collection.
func (r *Repository) Add(ctx context.Context, in AddInput) (*card.Card, error) {
	c, err := r.add(ctx, in)
	if err != nil {
		return nil, r.fail(notify.ActionAdd, err)
	}
	r.succeed(notify.ActionAdd, map[string]any{"id": c.ID})
	return c, nil
}

func (r *Repository) add(ctx context.Context, in AddInput) (*card.Card, error) {
	title, err := card.ValidateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	url, err := card.ValidateURL("url", in.URL)
	if err != nil {
		return nil, err
	}
	if in.IconFile != "" {
		icon, err := r.iconFromFile(in.IconFile)
		if err != nil {
			return nil, err
		}
		in.Icon = &icon
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	icon, err := r.resolveIcon(title, in.IconURL, in.Icon)
	if err != nil {
		return nil, err
	}

	tags := card.ParseTags(in.TagText)
	if len(in.Tags) > 0 {
		tags = card.CleanTags(in.Tags)
	}

	showIcon := true
	if in.ShowIcon != nil {
		showIcon = *in.ShowIcon
	}

	now := r.now()
	c := card.Card{
		ID:          r.newID(),
		Title:       title,
		Description: in.Description,
		Tags:        tags,
		Icon:        icon,
		URL:         url,
		ShowIcon:    showIcon,
		IsArchived:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	next := append(r.snapshot(), c)
	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}

	out := c.Clone()
	return &out, nil
}

// resolveIcon applies the icon priority. Caller holds r.mu (rng is not safe
// for concurrent use).
func (r *Repository) resolveIcon(title, iconURL string, icon *card.Icon) (card.Icon, error) {
	if strings.TrimSpace(iconURL) != "" {
		u, err := card.ValidateURL("icon_url", iconURL)
		if err != nil {
			return card.Icon{}, err
		}
		return card.ImageIcon(u), nil
	}
	if icon != nil {
		return r.normalizeIcon(title, *icon)
	}
	return card.LetterIcon(title, r.rng), nil
}

// iconFromFile encodes an image file allowed by the path policy as an image icon.
func (r *Repository) iconFromFile(path string) (card.Icon, error) {
	if err := r.policy.ValidatePath(path, files.ModeRead, files.ImageExtensions); err != nil {
		return card.Icon{}, err
	}
	u, err := files.ImageDataURL(path)
	if err != nil {
		return card.Icon{}, err
	}
	return card.ImageIcon(u), nil
}

// normalizeIcon validates a caller-supplied icon and fills in missing letter fields.
func (r *Repository) normalizeIcon(title string, icon card.Icon) (card.Icon, error) {
	switch icon.Type {
	case card.IconImage:
		u, err := card.ValidateIconURL("icon.url", icon.URL)
		if err != nil {
			return card.Icon{}, err
		}
		if u == "" {
			return card.Icon{}, errors.NewInvalidField("icon.url", "is required for image icons")
		}
		return card.ImageIcon(u), nil
	case card.IconLetter, "":
		out := card.Icon{Type: card.IconLetter, Letter: icon.Letter, Color: icon.Color}
		if out.Letter == "" {
			out.Letter = card.Letter(title)
		}
		if out.Color == "" {
			out.Color = card.LetterIcon(title, r.rng).Color
		}
		return out, nil
	default:
		return card.Icon{}, errors.NewInvalidField("icon.type", "must be \"letter\" or \"image\"")
	}
}
