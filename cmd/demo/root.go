package demo

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/kvorm/cmd/util"
	"github.com/ValentinKolb/kvorm/lib/orm"
	"github.com/ValentinKolb/kvorm/lib/store"
	"github.com/ValentinKolb/kvorm/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// DemoCmd stores a small library catalog on the server and reads it back
	DemoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Store and query a library catalog through the object mapper",
		Long:  "Registers the Author and Book models, inserts a catalog, runs selects, a partial select, an update and a delete against the configured server and prints every step.",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
)

func init() {
	util.SetupRPCClientFlags(DemoCmd)
	DemoCmd.PersistentFlags().Int("shard", 100, util.WrapString("ID of the store shard to use"))
	DemoCmd.PersistentFlags().String("ttl", "0", util.WrapString("Lifetime of the demo records as duration or seconds, 0 keeps them"))
}

// Author is a writer of books
type Author struct {
	Name        string `kv:"name"`
	ActiveYears [2]int `kv:"active_years"`
}

// Book is a catalog entry, its author is stored as a record of its own
type Book struct {
	Title     string     `kv:"title"`
	Author    Author     `kv:"author"`
	Rating    float64    `kv:"rating"`
	InStock   bool       `kv:"in_stock"`
	Published *time.Time `kv:"published,date"`
	Tags      []string   `kv:"tags"`
}

func run(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging(); err != nil {
		return err
	}
	ttl, err := util.ParseDuration(viper.GetString("ttl"))
	if err != nil {
		return err
	}
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}
	newTransport, err := util.GetTransport()
	if err != nil {
		return err
	}

	dial := client.Dialer(util.GetShardID(), util.GetClientConfig(), newTransport, s)
	return Run(dial, ttl, func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	})
}

// Run executes the demo against the store opened by dial, reporting every step to printf
func Run(dial store.Dialer, ttl time.Duration, printf func(format string, args ...any)) error {
	db := orm.NewStore(dial, orm.WithDefaultTTL(ttl))
	if err := db.Connection().Open(); err != nil {
		return err
	}
	defer db.Close()

	authors, err := orm.RegisterCollection[Author](db, "name")
	if err != nil {
		return err
	}
	books, err := orm.RegisterCollection[Book](db, "title")
	if err != nil {
		return err
	}

	dickens := Author{Name: "Charles Dickens", ActiveYears: [2]int{1220, 1280}}
	published := time.Date(1838, 11, 9, 0, 0, 0, 0, time.UTC)
	catalog := []Book{
		{Title: "Oliver Twist", Author: dickens, Rating: 2, Published: &published, Tags: []string{"novel"}},
		{Title: "Great Expectations", Author: dickens, Rating: 5, InStock: true},
		{Title: "Emma", Author: Author{Name: "Jane Austen", ActiveYears: [2]int{1795, 1817}}, Rating: 4, InStock: true},
	}
	if err := books.InsertMany(catalog); err != nil {
		return err
	}
	printf("inserted %d books", len(catalog))

	book, err := books.SelectOne("Oliver Twist")
	if err != nil {
		return err
	}
	if book == nil {
		return fmt.Errorf("book %q not found after insert", "Oliver Twist")
	}
	printf("select one: %+v (equal to inserted: %t)", *book, orm.Equal(catalog[0], *book))

	partial, err := books.SelectOnePartial("Oliver Twist", []string{"title", "author", "in_stock"})
	if err != nil {
		return err
	}
	printf("partial select: %v", partial)

	many, err := books.SelectMany([]any{"Emma", "Ulysses"})
	if err != nil {
		return err
	}
	printf("select many (Emma, Ulysses): %d found", len(many))

	if err := books.UpdateOne("Oliver Twist", map[string]any{"in_stock": true, "rating": 3}); err != nil {
		return err
	}
	ratings, err := books.SelectPartial([]string{"title", "rating", "in_stock"})
	if err != nil {
		return err
	}
	for _, r := range ratings {
		printf("after update: %v", r)
	}

	if err := books.DeleteOne("Oliver Twist"); err != nil {
		return err
	}
	author, err := authors.SelectOne("Charles Dickens")
	if err != nil {
		return err
	}
	printf("deleted Oliver Twist, author still stored: %t", author != nil)

	all, err := books.SelectAll()
	if err != nil {
		return err
	}
	for _, b := range all {
		printf("remaining: %s by %s", b.Title, b.Author.Name)
	}
	return nil
}
