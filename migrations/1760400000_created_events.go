package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("events")
		collection.ListRule = types.Pointer("status = 'published' || owner = @request.auth.id")
		collection.ViewRule = types.Pointer("status = 'published' || owner = @request.auth.id")
		collection.CreateRule = types.Pointer("@request.auth.id != '' && owner = @request.auth.id")
		collection.UpdateRule = types.Pointer("owner = @request.auth.id")
		collection.DeleteRule = types.Pointer("owner = @request.auth.id")

		collection.Fields.Add(
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.EditorField{Name: "description"},
			&core.TextField{Name: "venue"},
			&core.DateField{Name: "starts_at", Required: true},
			&core.DateField{Name: "ends_at"},
			&core.RelationField{Name: "owner", CollectionId: users.Id, MaxSelect: 1, Required: true},
			&core.NumberField{Name: "price", Min: types.Pointer(0.0)},
			&core.TextField{Name: "currency", Max: 3},
			&core.SelectField{Name: "status", MaxSelect: 1, Values: []string{"draft", "published", "ended"}},
			&core.FileField{Name: "banner", MaxSelect: 1, MaxSize: 5 << 20, MimeTypes: []string{"image/jpeg", "image/png", "image/webp"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
