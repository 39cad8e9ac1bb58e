package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vikasavnish/heirloom/internal/models"
	"github.com/vikasavnish/heirloom/internal/services"
)

var (
	treeID      uint
	existingID  uint
	newPerson   services.NewPerson
	sexFlag     string
	event       services.EventInput
	birthPlace  string
	bornFrom    int
	bornTo      int
	searchLimit int
)

// addPersonFlags registers the flags describing a new person and, with
// existing set, the flag selecting a stored one instead.
func addPersonFlags(cmd *cobra.Command, existing bool) {
	if existing {
		cmd.Flags().UintVar(&existingID, "existing", 0, "ID of a person already in the tree")
	}
	cmd.Flags().StringVar(&newPerson.FirstName, "first", "", "First name")
	cmd.Flags().StringVar(&newPerson.LastName, "last", "", "Last name")
	cmd.Flags().StringVar(&sexFlag, "sex", "", "M, F or U")
	cmd.Flags().StringVar(&newPerson.BirthDate, "birth", "", "Free text birth date")
	cmd.Flags().StringVar(&newPerson.DeathDate, "death", "", "Free text death date")
}

// personRef builds the reference selected by the person flags.
func personRef() services.PersonRef {
	if existingID != 0 {
		return services.Existing(existingID)
	}
	p := newPerson
	if sexFlag != "" {
		p.Sex = models.ParseSex(sexFlag)
	}
	return services.Create(p)
}

func describe(p *models.Person) string {
	return fmt.Sprintf("%d %s (%s)", p.ID, p.Name(), p.Sex)
}

func runPersonAdd(cmd *cobra.Command, args []string) error {
	if err := heirloom.open(); err != nil {
		return err
	}
	in := personRef().New
	person, err := heirloom.people.AddPerson(heirloom.ctx(cmd.Context()), treeID, *in)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Added", describe(person))
	return nil
}

func runPersonDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "person id")
	if err != nil {
		return err
	}
	if err := heirloom.open(); err != nil {
		return err
	}
	if err := heirloom.people.DeletePerson(heirloom.ctx(cmd.Context()), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted person %d\n", id)
	return nil
}

func runPersonEvent(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "person id")
	if err != nil {
		return err
	}
	if err := heirloom.open(); err != nil {
		return err
	}
	in := event
	in.Type = strings.ToLower(args[1])
	ev, err := heirloom.people.AddEvent(heirloom.ctx(cmd.Context()), id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s event %d\n", ev.Type.Label(), ev.ID)
	return nil
}

func runPersonSearch(cmd *cobra.Command, args []string) error {
	if err := heirloom.open(); err != nil {
		return err
	}
	q := services.SearchQuery{
		TreeID: treeID,
		Name:   strings.Join(args, " "),
		Birth:  services.EventFilter{Place: birthPlace},
		Limit:  searchLimit,
	}
	if bornFrom != 0 {
		q.Birth.FromYear = &bornFrom
	}
	if bornTo != 0 {
		q.Birth.ToYear = &bornTo
	}

	results, err := heirloom.search.SearchPeople(heirloom.ctx(cmd.Context()), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Person.ID, r.Person.Name(), year(r.BirthYear), year(r.DeathYear))
	}
	return nil
}

func year(y *int) string {
	if y == nil {
		return "?"
	}
	return fmt.Sprint(*y)
}
