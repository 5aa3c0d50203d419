package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"

	"github.com/dottey/cupctl/internal/adapters/archive"
	"github.com/dottey/cupctl/internal/adapters/store"
	"github.com/dottey/cupctl/internal/domain/model"
)

const fossilDefinition = `{
  "name": "fossil",
  "title": "Fossil Cup",
  "league": 1500,
  "include": [{"filterType": "id", "values": ["omastar", "kabutops"]}]
}`

const fossilOverride = `[{"speciesId": "kabutops", "fastMove": "FURY_CUTTER", "chargedMoves": ["STONE_EDGE"]}]`

// seedRoot lays out a complete fossil cup ready for packaging.
func seedRoot(t *testing.T, withOverrides, withGroup bool) *store.Store {
	t.Helper()
	st := store.New(t.TempDir())

	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}

	must(st.WriteJSON(st.DefinitionPath("fossil"), []byte(fossilDefinition)))
	for _, category := range model.Categories {
		must(st.WriteJSON(st.RankingPath("fossil", category, 1500),
			[]byte(`[{"speciesId":"omastar"},{"speciesId":"kabutops"}]`)))
	}
	if withOverrides {
		must(st.WriteJSON(st.OverridePath("fossil", 1500), []byte(fossilOverride)))
	}
	if withGroup {
		must(st.WriteJSON(st.GroupPath("fossil"), []byte(`[{"speciesId":"omastar"}]`)))
	}
	return st
}

func TestPackage(t *testing.T) {
	ctx := context.Background()

	Convey("Given a complete cup on disk", t, func() {
		st := seedRoot(t, true, true)
		distDir := t.TempDir()
		p := archive.New(st, distDir, "https://builder.devon.gg/cups/")

		Convey("When packaging it", func() {
			result, err := p.Package(ctx, "fossil")
			So(err, ShouldBeNil)

			Convey("Then the archive lands in the dist dir with a retrieval URL", func() {
				So(result.Path, ShouldEqual, filepath.Join(distDir, "fossil.zip"))
				So(result.URL, ShouldEqual, "https://builder.devon.gg/cups/fossil.zip")
				So(result.Bytes, ShouldBeGreaterThan, 0)

				info, err := os.Stat(result.Path)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldEqual, result.Bytes)
			})

			Convey("Then the bundle reads back the packaged artifacts", func() {
				b, err := archive.OpenBundle(result.Path)
				So(err, ShouldBeNil)
				defer b.Close()

				So(b.Shortname(), ShouldEqual, "fossil")

				def, err := b.Definition()
				So(err, ShouldBeNil)
				So(gjson.GetBytes(def, "title").String(), ShouldEqual, "Fossil Cup")

				snapshot, err := b.Snapshot(1500)
				So(err, ShouldBeNil)
				So(gjson.ParseBytes(snapshot).Array()[0].Get("fastMove").String(), ShouldEqual, "FURY_CUTTER")
			})
		})

		Convey("When the definition is missing", func() {
			So(st.RemoveTree(st.DefinitionPath("fossil")), ShouldBeNil)
			_, err := p.Package(ctx, "fossil")

			Convey("Then packaging fails with not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the rankings subtree is missing", func() {
			So(st.RemoveTree(st.RankingsDir("fossil")), ShouldBeNil)
			_, err := p.Package(ctx, "fossil")

			Convey("Then packaging fails with not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a cup without overrides or a group record", t, func() {
		st := seedRoot(t, false, false)
		p := archive.New(st, t.TempDir(), "https://builder.devon.gg/cups")

		Convey("When packaging it", func() {
			result, err := p.Package(ctx, "fossil")

			Convey("Then the optional artifacts are skipped, not fatal", func() {
				So(err, ShouldBeNil)
				So(result.Bytes, ShouldBeGreaterThan, 0)
			})

			Convey("Then the snapshot falls back to the overall rankings", func() {
				b, err := archive.OpenBundle(result.Path)
				So(err, ShouldBeNil)
				defer b.Close()

				snapshot, err := b.Snapshot(1500)
				So(err, ShouldBeNil)
				ids := gjson.ParseBytes(snapshot).Array()
				So(ids, ShouldHaveLength, 2)
				So(ids[0].Get("speciesId").String(), ShouldEqual, "omastar")
			})
		})
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	Convey("Given a freshly packaged complete cup", t, func() {
		st := seedRoot(t, true, true)
		p := archive.New(st, t.TempDir(), "https://builder.devon.gg/cups")
		result, err := p.Package(ctx, "fossil")
		So(err, ShouldBeNil)

		Convey("When verifying the archive", func() {
			report, err := archive.Verify(result.Path)

			Convey("Then it passes with no errors or warnings", func() {
				So(err, ShouldBeNil)
				So(report.OK(), ShouldBeTrue)
				So(report.Shortname, ShouldEqual, "fossil")
				So(report.League, ShouldEqual, 1500)
				So(report.Warnings, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a packaged cup missing its league override", t, func() {
		st := seedRoot(t, false, false)
		p := archive.New(st, t.TempDir(), "https://builder.devon.gg/cups")
		result, err := p.Package(ctx, "fossil")
		So(err, ShouldBeNil)

		Convey("When verifying the archive", func() {
			report, err := archive.Verify(result.Path)

			Convey("Then the missing override is an error", func() {
				So(err, ShouldBeNil)
				So(report.OK(), ShouldBeFalse)
				So(report.Errors, ShouldHaveLength, 1)
				So(report.Errors[0], ShouldContainSubstring, "fossil/overrides/fossil/1500.json")
			})
		})
	})

	Convey("Given a packaged cup with a missing category and an extra one", t, func() {
		st := seedRoot(t, true, true)
		So(st.RemoveTree(filepath.Join(st.RankingsDir("fossil"), "switches")), ShouldBeNil)
		So(st.WriteJSON(filepath.Join(st.RankingsDir("fossil"), "experimental", model.RankingFile(1500)),
			[]byte(`[]`)), ShouldBeNil)

		p := archive.New(st, t.TempDir(), "https://builder.devon.gg/cups")
		result, err := p.Package(ctx, "fossil")
		So(err, ShouldBeNil)

		Convey("When verifying the archive", func() {
			report, err := archive.Verify(result.Path)
			So(err, ShouldBeNil)

			Convey("Then the missing category is an error", func() {
				So(report.OK(), ShouldBeFalse)
				So(report.Errors, ShouldHaveLength, 1)
				So(report.Errors[0], ShouldContainSubstring, "missing ranking category: switches")
			})

			Convey("Then the extra category is only a warning", func() {
				So(report.Warnings, ShouldHaveLength, 1)
				So(report.Warnings[0], ShouldContainSubstring, "experimental")
			})
		})
	})
}
