package users

import (
	"context"

	"github.com/exploopio/vrx-portal/pkg/shell"
	"github.com/exploopio/vrx-portal/pkg/ui"
)

// Manifest registers the section with the shell.
func Manifest(svc *Service, renderer *ui.Renderer) shell.Manifest {
	return shell.Manifest{
		Prefix: Section,
		Label:  "Users",
		Icon:   "👥",
		Loader: func(context.Context) (*shell.Section, error) {
			v, err := NewViews(svc, renderer)
			if err != nil {
				return nil, err
			}
			return v.Section(), nil
		},
	}
}
