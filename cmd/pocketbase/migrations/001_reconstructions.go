package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		reconstructions := core.NewBaseCollection("reconstructions")
		reconstructions.Fields.Add(
			&core.TextField{Name: "reconstruction_id", Max: 100},
			&core.JSONField{Name: "document", Required: true, MaxSize: 1 << 20},
			&core.SelectField{
				Name:   "status",
				Values: []string{"recovered", "failed"},
			},
			// int64 secrets do not survive a float64 NumberField.
			&core.TextField{Name: "secret", Max: 32},
			&core.NumberField{Name: "n", OnlyInt: true},
			&core.NumberField{Name: "k", OnlyInt: true},
			&core.JSONField{Name: "used"},
			&core.JSONField{Name: "dropped"},
			&core.TextField{Name: "stage", Max: 50},
			&core.TextField{Name: "error"},
			&core.TextField{Name: "share_id", Max: 50},
			&core.TextField{Name: "document_sha256", Max: 100},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		reconstructions.Indexes = types.JSONArray[string]{
			"CREATE UNIQUE INDEX idx_reconstructions_reconstruction_id ON reconstructions (reconstruction_id)",
			"CREATE INDEX idx_reconstructions_status ON reconstructions (status)",
		}
		// Public read, authenticated write; records are immutable.
		reconstructions.ViewRule = types.Pointer("")
		reconstructions.ListRule = types.Pointer("")
		reconstructions.CreateRule = types.Pointer("@request.auth.id != ''")
		return app.Save(reconstructions)
	}, func(app core.App) error {
		c, _ := app.FindCollectionByNameOrId("reconstructions")
		if c != nil {
			return app.Delete(c)
		}
		return nil
	})
}
