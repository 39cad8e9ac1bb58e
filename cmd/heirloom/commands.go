package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	userID  uint
	verbose bool

	rootCmd = &cobra.Command{
		Use:           "heirloom",
		Short:         "Manage genealogy trees stored in the heirloom database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			heirloom.setup()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE:  runMigrate, // Defined in cmd_tree.go
	}

	// --- GEDCOM ---
	importCmd = &cobra.Command{
		Use:   "import [file.ged]",
		Short: "Import a GEDCOM file as a new tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport, // Defined in cmd_tree.go
	}
	exportCmd = &cobra.Command{
		Use:   "export [tree-id]",
		Short: "Write a tree as GEDCOM",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport, // Defined in cmd_tree.go
	}

	// --- Trees ---
	treeCmd = &cobra.Command{
		Use:   "tree",
		Short: "Manage trees",
	}
	treeCreateCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Create an empty tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runTreeCreate,
	}
	treeListCmd = &cobra.Command{
		Use:   "list",
		Short: "List your trees",
		Args:  cobra.NoArgs,
		RunE:  runTreeList,
	}
	treeDeleteCmd = &cobra.Command{
		Use:   "delete [tree-id]",
		Short: "DANGER: Delete a tree with all its people and families",
		Args:  cobra.ExactArgs(1),
		RunE:  runTreeDelete,
	}
	treeRepairCmd = &cobra.Command{
		Use:   "repair [tree-id]",
		Short: "Remove empty families and merge duplicated couples",
		Args:  cobra.ExactArgs(1),
		RunE:  runTreeRepair,
	}

	// --- People ---
	personCmd = &cobra.Command{
		Use:   "person",
		Short: "Manage people and their events",
	}
	personAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a person without relationships",
		Args:  cobra.NoArgs,
		RunE:  runPersonAdd, // Defined in cmd_person.go
	}
	personDeleteCmd = &cobra.Command{
		Use:   "delete [person-id]",
		Short: "Delete a person and repair the families they belonged to",
		Args:  cobra.ExactArgs(1),
		RunE:  runPersonDelete,
	}
	personEventCmd = &cobra.Command{
		Use:   "event [person-id] [type]",
		Short: "Record a life event such as a baptism or residence",
		Args:  cobra.ExactArgs(2),
		RunE:  runPersonEvent,
	}
	personSearchCmd = &cobra.Command{
		Use:   "search [name words...]",
		Short: "Search a tree by name, birth and death",
		RunE:  runPersonSearch,
	}

	// --- Relationships ---
	relationCmd = &cobra.Command{
		Use:     "relation",
		Short:   "Add or remove parents, partners and children",
		Aliases: []string{"rel"},
	}
	addParentCmd = &cobra.Command{
		Use:   "add-parent [person-id] [father|mother]",
		Short: "Give a person a father or mother",
		Args:  cobra.ExactArgs(2),
		RunE:  runAddParent, // Defined in cmd_relation.go
	}
	addPartnerCmd = &cobra.Command{
		Use:   "add-partner [person-id]",
		Short: "Record a partner of a person",
		Args:  cobra.ExactArgs(1),
		RunE:  runAddPartner,
	}
	addChildCmd = &cobra.Command{
		Use:   "add-child [person-id]",
		Short: "Record a child of a person",
		Args:  cobra.ExactArgs(1),
		RunE:  runAddChild,
	}
	removeRelationCmd = &cobra.Command{
		Use:   "remove [father|mother|child|partner] [person-id] [related-id]",
		Short: "Dissolve a relationship without deleting anyone",
		Args:  cobra.ExactArgs(3),
		RunE:  runRemoveRelation,
	}

	// --- Utilities ---
	yearCmd = &cobra.Command{
		Use:   "year [date text...]",
		Short: "Show the year the date heuristic finds in free text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runYear, // Defined in cmd_year.go
	}
)

func init() {
	rootCmd.PersistentFlags().UintVar(&userID, "user", 1, "ID of the user acting on the trees")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	importCmd.Flags().StringVar(&importName, "name", "", "Tree name (defaults to the _TREE header)")
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "Write to this file instead of stdout")

	addPersonFlags(personAddCmd, false)
	for _, cmd := range []*cobra.Command{addParentCmd, addPartnerCmd, addChildCmd} {
		addPersonFlags(cmd, true)
	}
	personAddCmd.Flags().UintVar(&treeID, "tree", 0, "Tree to add the person to")
	_ = personAddCmd.MarkFlagRequired("tree")

	personEventCmd.Flags().StringVar(&event.Date, "date", "", "Free text date")
	personEventCmd.Flags().StringVar(&event.Place, "place", "", "Place")
	personEventCmd.Flags().StringVar(&event.Description, "note", "", "Description")

	personSearchCmd.Flags().UintVar(&treeID, "tree", 0, "Tree to search")
	_ = personSearchCmd.MarkFlagRequired("tree")
	personSearchCmd.Flags().StringVar(&birthPlace, "born-in", "", "Birth place contains")
	personSearchCmd.Flags().IntVar(&bornFrom, "born-from", 0, "Earliest birth year")
	personSearchCmd.Flags().IntVar(&bornTo, "born-to", 0, "Latest birth year")
	personSearchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum number of results")

	addPartnerCmd.Flags().UintVar(&familyID, "family", 0, "Single-parent family to turn into the couple's family")
	addPartnerCmd.Flags().UintSliceVar(&migrateIDs, "migrate", nil, "Children that move to the couple (default all)")
	addChildCmd.Flags().UintVar(&familyID, "family", 0, "Family to add the child to (default the person's own)")
	addChildCmd.Flags().StringVar(&childRelation, "relation", "B", "B(iological), A(dopted), F(oster) or U(nknown)")

	treeCmd.AddCommand(treeCreateCmd, treeListCmd, treeDeleteCmd, treeRepairCmd)
	personCmd.AddCommand(personAddCmd, personDeleteCmd, personEventCmd, personSearchCmd)
	relationCmd.AddCommand(addParentCmd, addPartnerCmd, addChildCmd, removeRelationCmd)
	rootCmd.AddCommand(migrateCmd, importCmd, exportCmd, treeCmd, personCmd, relationCmd, yearCmd)
}
