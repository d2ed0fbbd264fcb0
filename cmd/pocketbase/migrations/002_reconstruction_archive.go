package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		reconstructions, err := app.FindCollectionByNameOrId("reconstructions")
		if err != nil {
			return err
		}

		reconstructions.Fields.Add(
			&core.TextField{Name: "submitted_by", Max: 200},
			&core.FileField{
				Name:      "archive",
				MaxSelect: 1,
				MaxSize:   1 << 20,
				MimeTypes: []string{"application/json", "text/plain", "application/octet-stream"},
			},
		)

		return app.Save(reconstructions)
	}, func(app core.App) error {
		reconstructions, err := app.FindCollectionByNameOrId("reconstructions")
		if err != nil {
			return err
		}

		reconstructions.Fields.RemoveByName("submitted_by")
		reconstructions.Fields.RemoveByName("archive")

		return app.Save(reconstructions)
	})
}
