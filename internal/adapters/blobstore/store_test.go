package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// contract runs the behaviour every backend must share.
func contract(t *testing.T, name string, open func() Store) {
	Convey("Given a "+name+" blob store", t, func() {
		ctx := context.Background()
		store := open()
		defer func() { _ = store.Close() }()

		Convey("When a blob is put", func() {
			err := store.Put(ctx, "runs/abc", []byte("recording"), map[string]string{"timestamp": "2024-01-01T00:00:00Z"})
			So(err, ShouldBeNil)

			Convey("Then it exists and reads back with its metadata", func() {
				ok, err := store.Exists(ctx, "runs/abc")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				obj, err := store.Get(ctx, "runs/abc")
				So(err, ShouldBeNil)
				So(string(obj.Body), ShouldEqual, "recording")
				So(obj.Size, ShouldEqual, 9)
				So(obj.Metadata["timestamp"], ShouldEqual, "2024-01-01T00:00:00Z")
			})

			Convey("Then writing the same key again is refused", func() {
				err := store.Put(ctx, "runs/abc", []byte("other"), nil)
				So(errors.Is(err, ErrExists), ShouldBeTrue)

				obj, _ := store.Get(ctx, "runs/abc")
				So(string(obj.Body), ShouldEqual, "recording")
			})
		})

		Convey("When a missing key is read", func() {
			ok, err := store.Exists(ctx, "runs/missing")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			_, err = store.Get(ctx, "runs/missing")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When an empty key is put", func() {
			So(errors.Is(store.Put(ctx, " ", []byte("x"), nil), ErrInvalidKey), ShouldBeTrue)
		})

		Convey("When a zero-length placeholder is put", func() {
			So(store.Put(ctx, "runs/empty", nil, nil), ShouldBeNil)

			Convey("Then it lists with size zero", func() {
				p, err := store.List(ctx, "runs/", "", 10)
				So(err, ShouldBeNil)
				So(p.Objects, ShouldHaveLength, 1)
				So(p.Objects[0].Size, ShouldEqual, 0)
			})
		})

		Convey("When many blobs share a prefix", func() {
			for i := 0; i < 7; i++ {
				So(store.Put(ctx, fmt.Sprintf("runs/%02d", i), []byte{byte(i)}, nil), ShouldBeNil)
			}
			So(store.Put(ctx, "other/x", []byte("x"), nil), ShouldBeNil)
			So(store.Put(ctx, "runsx", []byte("x"), nil), ShouldBeNil)

			Convey("Then paging walks every key once in order", func() {
				var keys []string
				token := ""
				pages := 0
				for {
					p, err := store.List(ctx, "runs/", token, 3)
					So(err, ShouldBeNil)
					pages++
					for _, o := range p.Objects {
						keys = append(keys, o.Key)
					}
					if !p.Truncated {
						break
					}
					token = p.NextToken
				}
				So(pages, ShouldEqual, 3)
				So(keys, ShouldResemble, []string{"runs/00", "runs/01", "runs/02", "runs/03", "runs/04", "runs/05", "runs/06"})
			})

			Convey("Then an invalid limit is rejected", func() {
				_, err := store.List(ctx, "runs/", "", 0)
				So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When a prefix contains LIKE wildcards", func() {
			So(store.Put(ctx, "a_b/1", []byte("1"), nil), ShouldBeNil)
			So(store.Put(ctx, "axb/1", []byte("1"), nil), ShouldBeNil)

			Convey("Then they are matched literally", func() {
				p, err := store.List(ctx, "a_b/", "", 10)
				So(err, ShouldBeNil)
				So(p.Objects, ShouldHaveLength, 1)
				So(p.Objects[0].Key, ShouldEqual, "a_b/1")
			})
		})
	})
}

func TestMemoryStore(t *testing.T) {
	contract(t, "memory", func() Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	n := 0
	contract(t, "sqlite", func() Store {
		n++
		s, err := OpenSQLite(context.Background(), filepath.Join(dir, fmt.Sprintf("blobs-%d.db", n)))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return s
	})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ROBOARENA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROBOARENA_TEST_POSTGRES_DSN not set")
	}
	contract(t, "postgres", func() Store {
		ctx := context.Background()
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if _, err := s.pool.Exec(ctx, `TRUNCATE tournament_blobs`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}

func TestOpen(t *testing.T) {
	Convey("Given backend names", t, func() {
		ctx := context.Background()

		Convey("Then memory is the default", func() {
			s, err := Open(ctx, Config{})
			So(err, ShouldBeNil)
			_, ok := s.(*MemoryStore)
			So(ok, ShouldBeTrue)
		})

		Convey("Then sqlite opens at the given path", func() {
			s, err := Open(ctx, Config{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")})
			So(err, ShouldBeNil)
			So(s.Close(), ShouldBeNil)
		})

		Convey("Then unknown backends fail", func() {
			_, err := Open(ctx, Config{Backend: "s3"})
			So(errors.Is(err, ErrBackend), ShouldBeTrue)
		})
	})
}
