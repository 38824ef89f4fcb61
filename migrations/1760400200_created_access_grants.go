package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		// superuser only; grants are issued and checked by the server
		collection := core.NewBaseCollection("access_grants")

		collection.Fields.Add(
			&core.TextField{Name: "token_hash", Required: true, Hidden: true},
			&core.RelationField{Name: "event_id", CollectionId: events.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.EmailField{Name: "grantee_email"},
			&core.TextField{Name: "granted_by", Required: true},
			&core.DateField{Name: "expires_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_access_grants_token_event", true, "token_hash, event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("access_grants")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
