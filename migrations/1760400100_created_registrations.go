package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("registrations")
		// attendees see their own rows, owners see the event's; writes of
		// check-in state only go through the custom endpoint
		collection.ListRule = types.Pointer("user_id = @request.auth.id || event_id.owner = @request.auth.id")
		collection.ViewRule = types.Pointer("user_id = @request.auth.id || event_id.owner = @request.auth.id")
		collection.CreateRule = nil
		collection.UpdateRule = types.Pointer("event_id.owner = @request.auth.id")
		collection.DeleteRule = nil

		collection.Fields.Add(
			&core.RelationField{Name: "event_id", CollectionId: events.Id, MaxSelect: 1, Required: true, CascadeDelete: false},
			&core.TextField{Name: "user_id", Required: true},
			&core.TextField{Name: "name", Required: true},
			&core.EmailField{Name: "email", Required: true},
			&core.TextField{Name: "phone"},
			&core.TextField{Name: "organization"},
			&core.TextField{Name: "ticket_code", Required: true},
			&core.TextField{Name: "payment_id"},
			&core.BoolField{Name: "checked_in"},
			&core.DateField{Name: "checked_in_at"},
			&core.TextField{Name: "scanned_by"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_registrations_event_user", true, "event_id, user_id", "")
		collection.AddIndex("idx_registrations_ticket_code", true, "ticket_code", "")
		// one verified payment settles exactly one registration
		collection.AddIndex("idx_registrations_payment_id", true, "payment_id", "payment_id != ''")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("registrations")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
