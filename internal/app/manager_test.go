package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dottey/cupctl/internal/adapters/registry"
	"github.com/dottey/cupctl/internal/adapters/store"
	lifecycle "github.com/dottey/cupctl/internal/app"
	"github.com/dottey/cupctl/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"
)

const formatsFixture = `[
  {"title": "Great League", "cup": "all", "cp": "1500", "meta": "great", "showFormat": true},
  {"title": "Fossil Cup", "cup": "fossil", "cp": "1500", "meta": "fossil", "showFormat": false}
]`

const fossilDefinition = `{
  "name": "fossil",
  "title": "Fossil Cup",
  "league": 1500,
  "include": [{"filterType": "id", "values": ["omastar", "kabutops"]}],
  "exclude": ["mewtwo"],
  "link": "https://example.org/fossil-rules"
}`

// seedRoot lays out a complete fossil cup plus the formats collection.
func seedRoot(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(t.TempDir())

	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}

	must(st.WriteRaw(st.FormatsPath(), []byte(formatsFixture)))
	must(st.WriteJSON(st.DefinitionPath("fossil"), []byte(fossilDefinition)))
	must(st.WriteJSON(st.GroupPath("fossil"), []byte(`[{"speciesId":"omastar"}]`)))
	must(st.WriteJSON(st.OverridePath("fossil", 1500), []byte(`[{"speciesId":"kabutops","fastMove":"FURY_CUTTER"}]`)))
	for _, category := range model.Categories {
		must(st.WriteJSON(st.RankingPath("fossil", category, 1500),
			[]byte(`[{"speciesId":"omastar"},{"speciesId":"kabutops"}]`)))
	}
	return st
}

func TestCreate(t *testing.T) {
	convey.Convey("Given a manager over a seeded root", t, func() {
		st := seedRoot(t)
		m := lifecycle.New(st, lifecycle.WithTemplateFormat("all"))
		ctx := context.Background()

		convey.Convey("When creating a cup with an unused codename", func() {
			result, err := m.Create(ctx, "jungle", "Jungle Cup", 1500, nil)

			convey.Convey("Then all five artifact groups should exist", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result, convey.ShouldNotBeNil)
				convey.So(result.Op, convey.ShouldEqual, "create")
				convey.So(result.OperationID, convey.ShouldNotBeEmpty)
				convey.So(len(result.Paths), convey.ShouldEqual, 4+len(model.Categories))

				def, err := st.ReadJSON(st.DefinitionPath("jungle"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(gjson.GetBytes(def, "name").String(), convey.ShouldEqual, "jungle")
				convey.So(gjson.GetBytes(def, "title").String(), convey.ShouldEqual, "Jungle Cup")
				convey.So(gjson.GetBytes(def, "league").Int(), convey.ShouldEqual, 1500)

				group, err := st.ReadJSON(st.GroupPath("jungle"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(group), convey.ShouldContainSubstring, "[]")

				override, err := st.ReadJSON(st.OverridePath("jungle", 1500))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(override), convey.ShouldContainSubstring, "[]")

				for _, category := range model.Categories {
					convey.So(st.Exists(st.RankingPath("jungle", category, 1500)), convey.ShouldBeTrue)
				}
			})

			convey.Convey("And the registry entry should derive from the template", func() {
				convey.So(err, convey.ShouldBeNil)
				r, err := registry.Load(st)
				convey.So(err, convey.ShouldBeNil)
				entry, err := r.FindByCup("jungle")
				convey.So(err, convey.ShouldBeNil)
				convey.So(gjson.Get(entry, "title").String(), convey.ShouldEqual, "Jungle Cup")
				convey.So(gjson.Get(entry, "meta").String(), convey.ShouldEqual, "jungle")
				// Carried over from the "all" template entry.
				convey.So(gjson.Get(entry, "showFormat").Bool(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When creating a cup with a definition body", func() {
			body := []byte(`{"name":"placeholder","title":"Placeholder","include":[],"exclude":["mew"]}`)
			_, err := m.Create(ctx, "jungle", "Jungle Cup", 2500, body)

			convey.Convey("Then fields should be assigned structurally and others preserved", func() {
				convey.So(err, convey.ShouldBeNil)
				def, err := st.ReadJSON(st.DefinitionPath("jungle"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(gjson.GetBytes(def, "name").String(), convey.ShouldEqual, "jungle")
				convey.So(gjson.GetBytes(def, "title").String(), convey.ShouldEqual, "Jungle Cup")
				convey.So(gjson.GetBytes(def, "league").Int(), convey.ShouldEqual, 2500)
				convey.So(gjson.GetBytes(def, "exclude.0").String(), convey.ShouldEqual, "mew")
			})
		})

		convey.Convey("When creating a cup whose codename is taken", func() {
			_, err := m.Create(ctx, "fossil", "Fossil Again", 1500, nil)

			convey.Convey("Then it should report AlreadyExists", func() {
				convey.So(errors.Is(err, model.ErrAlreadyExists), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When creating a cup with an invalid league", func() {
			_, err := m.Create(ctx, "jungle", "Jungle Cup", 1000, nil)

			convey.Convey("Then it should fail before writing anything", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(st.Exists(st.DefinitionPath("jungle")), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the template format entry is missing", func() {
			bad := lifecycle.New(st, lifecycle.WithTemplateFormat("ghost"))
			_, err := bad.Create(ctx, "jungle", "Jungle Cup", 1500, nil)

			convey.Convey("Then the failed create should unwind the definition", func() {
				convey.So(errors.Is(err, model.ErrNotFound), convey.ShouldBeTrue)
				convey.So(st.Exists(st.DefinitionPath("jungle")), convey.ShouldBeFalse)
			})
		})
	})
}

func TestClone(t *testing.T) {
	convey.Convey("Given a manager over a seeded root", t, func() {
		st := seedRoot(t)
		m := lifecycle.New(st)
		ctx := context.Background()

		convey.Convey("When cloning fossil to relic", func() {
			sourceDef, err := st.ReadJSON(st.DefinitionPath("fossil"))
			convey.So(err, convey.ShouldBeNil)

			result, err := m.Clone(ctx, "fossil", "relic", "Relic Cup")

			convey.Convey("Then relic should mirror fossil except codename/title", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.Cup, convey.ShouldEqual, "relic")

				def, err := st.ReadJSON(st.DefinitionPath("relic"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(gjson.GetBytes(def, "name").String(), convey.ShouldEqual, "relic")
				convey.So(gjson.GetBytes(def, "title").String(), convey.ShouldEqual, "Relic Cup")
				// Every other field byte-for-byte.
				convey.So(gjson.GetBytes(def, "link").String(), convey.ShouldEqual,
					gjson.GetBytes(sourceDef, "link").String())
				convey.So(gjson.GetBytes(def, "include").Raw, convey.ShouldEqual,
					gjson.GetBytes(sourceDef, "include").Raw)

				for _, category := range model.Categories {
					convey.So(st.Exists(st.RankingPath("relic", category, 1500)), convey.ShouldBeTrue)
				}
				convey.So(st.Exists(st.OverridePath("relic", 1500)), convey.ShouldBeTrue)
				convey.So(st.Exists(st.GroupPath("relic")), convey.ShouldBeTrue)
			})

			convey.Convey("And fossil should be unaffected", func() {
				convey.So(err, convey.ShouldBeNil)
				def, err := st.ReadJSON(st.DefinitionPath("fossil"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(def), convey.ShouldEqual, string(sourceDef))
				convey.So(st.Exists(st.OverridePath("fossil", 1500)), convey.ShouldBeTrue)
			})

			convey.Convey("And the registry should gain an appended derived entry", func() {
				convey.So(err, convey.ShouldBeNil)
				r, err := registry.Load(st)
				convey.So(err, convey.ShouldBeNil)
				entries := r.List()
				convey.So(len(entries), convey.ShouldEqual, 3)
				convey.So(gjson.Get(entries[2], "cup").String(), convey.ShouldEqual, "relic")
				convey.So(gjson.Get(entries[2], "showFormat").Bool(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When cloning a cup without optional artifacts", func() {
			convey.So(st.RemoveTree(st.GroupPath("fossil")), convey.ShouldBeNil)
			convey.So(st.RemoveTree(st.OverridesDir("fossil")), convey.ShouldBeNil)

			_, err := m.Clone(ctx, "fossil", "relic", "Relic Cup")

			convey.Convey("Then the missing subtrees should be skipped", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(st.Exists(st.GroupPath("relic")), convey.ShouldBeFalse)
				convey.So(st.Exists(st.OverridesDir("relic")), convey.ShouldBeFalse)
				convey.So(st.Exists(st.RankingsDir("relic")), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the source is missing", func() {
			_, err := m.Clone(ctx, "ghost", "relic", "Relic Cup")
			convey.So(errors.Is(err, model.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When the target exists", func() {
			_, err := m.Clone(ctx, "fossil", "fossil", "Fossil Cup")
			convey.So(errors.Is(err, model.ErrAlreadyExists), convey.ShouldBeTrue)
		})
	})
}

func TestRename(t *testing.T) {
	convey.Convey("Given a manager over a seeded root", t, func() {
		st := seedRoot(t)
		m := lifecycle.New(st)
		ctx := context.Background()

		convey.Convey("When renaming fossil to relic", func() {
			sourceDef, err := st.ReadJSON(st.DefinitionPath("fossil"))
			convey.So(err, convey.ShouldBeNil)

			result, err := m.Rename(ctx, "fossil", "relic", "Relic Cup")

			convey.Convey("Then no fossil artifact should remain", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.Cup, convey.ShouldEqual, "relic")
				convey.So(st.Exists(st.DefinitionPath("fossil")), convey.ShouldBeFalse)
				convey.So(st.Exists(st.GroupPath("fossil")), convey.ShouldBeFalse)
				convey.So(st.Exists(st.OverridesDir("fossil")), convey.ShouldBeFalse)
				convey.So(st.Exists(st.RankingsDir("fossil")), convey.ShouldBeFalse)
			})

			convey.Convey("And relic should equal fossil's pre-rename content except codename/title", func() {
				convey.So(err, convey.ShouldBeNil)
				def, err := st.ReadJSON(st.DefinitionPath("relic"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(gjson.GetBytes(def, "name").String(), convey.ShouldEqual, "relic")
				convey.So(gjson.GetBytes(def, "title").String(), convey.ShouldEqual, "Relic Cup")
				convey.So(gjson.GetBytes(def, "include").Raw, convey.ShouldEqual,
					gjson.GetBytes(sourceDef, "include").Raw)

				for _, category := range model.Categories {
					convey.So(st.Exists(st.RankingPath("relic", category, 1500)), convey.ShouldBeTrue)
				}

				r, err := registry.Load(st)
				convey.So(err, convey.ShouldBeNil)
				entries := r.List()
				convey.So(len(entries), convey.ShouldEqual, 2)
				entry, err := r.FindByCup("relic")
				convey.So(err, convey.ShouldBeNil)
				convey.So(gjson.Get(entry, "title").String(), convey.ShouldEqual, "Relic Cup")
			})
		})

		convey.Convey("When renaming a missing cup", func() {
			_, err := m.Rename(ctx, "ghost", "spirit", "Spirit Cup")
			convey.So(errors.Is(err, model.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When renaming onto an existing cup", func() {
			convey.So(st.WriteJSON(st.DefinitionPath("relic"), []byte(`{"name":"relic"}`)), convey.ShouldBeNil)
			_, err := m.Rename(ctx, "fossil", "relic", "Relic Cup")
			convey.So(errors.Is(err, model.ErrAlreadyExists), convey.ShouldBeTrue)
		})
	})
}

func TestDelete(t *testing.T) {
	convey.Convey("Given a manager over a seeded root", t, func() {
		st := seedRoot(t)
		m := lifecycle.New(st)
		ctx := context.Background()

		convey.Convey("When deleting fossil", func() {
			result, err := m.Delete(ctx, "fossil")

			convey.Convey("Then every artifact group should be gone", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.Op, convey.ShouldEqual, "delete")
				convey.So(st.Exists(st.DefinitionPath("fossil")), convey.ShouldBeFalse)
				convey.So(st.Exists(st.GroupPath("fossil")), convey.ShouldBeFalse)
				convey.So(st.Exists(st.OverridesDir("fossil")), convey.ShouldBeFalse)
				convey.So(st.Exists(st.RankingsDir("fossil")), convey.ShouldBeFalse)

				r, err := registry.Load(st)
				convey.So(err, convey.ShouldBeNil)
				_, err = r.FindByCup("fossil")
				convey.So(errors.Is(err, model.ErrNotFound), convey.ShouldBeTrue)
			})

			convey.Convey("And a second delete should fail on nothing and change nothing", func() {
				convey.So(err, convey.ShouldBeNil)
				before, err := st.ReadRaw(st.FormatsPath())
				convey.So(err, convey.ShouldBeNil)

				_, err = m.Delete(ctx, "fossil")
				convey.So(err, convey.ShouldBeNil)

				after, err := st.ReadRaw(st.FormatsPath())
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(after), convey.ShouldEqual, string(before))
			})
		})

		convey.Convey("When deleting a cup that never existed", func() {
			_, err := m.Delete(ctx, "ghost")
			convey.So(err, convey.ShouldBeNil)
		})
	})
}
