package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vikasavnish/heirloom/internal/db"
	"github.com/vikasavnish/heirloom/internal/services"
)

var (
	importName string
	exportPath string
)

func parseID(arg, what string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 0)
	if err != nil || id == 0 {
		return 0, errors.Errorf("invalid %s %q", what, arg)
	}
	return uint(id), nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := heirloom.open(); err != nil {
		return err
	}
	if err := db.Migrate(heirloom.db); err != nil {
		return err
	}
	heirloom.log.Info("Schema is up to date")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := heirloom.open(); err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "open GEDCOM file")
	}
	defer f.Close()

	res, err := heirloom.trees.ImportGEDCOM(heirloom.ctx(cmd.Context()), f, services.ImportOptions{
		TreeName:       importName,
		SourceDocument: filepath.Base(args[0]),
	})
	if err != nil {
		return err
	}

	for _, d := range res.Diagnostics {
		cmd.PrintErrln("warning:", d.String())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported tree %d %q: %d people, %d families, %d events\n",
		res.Tree.ID, res.Tree.Name, res.People, res.Families, res.Events)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "tree id")
	if err != nil {
		return err
	}
	if err := heirloom.open(); err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return errors.Wrap(err, "create output file")
		}
		defer f.Close()
		w = f
	}
	return heirloom.trees.ExportGEDCOM(heirloom.ctx(cmd.Context()), id, w)
}

func runTreeCreate(cmd *cobra.Command, args []string) error {
	if err := heirloom.open(); err != nil {
		return err
	}
	tree, err := heirloom.trees.CreateTree(heirloom.ctx(cmd.Context()), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created tree %d %q\n", tree.ID, tree.Name)
	return nil
}

func runTreeList(cmd *cobra.Command, args []string) error {
	if err := heirloom.open(); err != nil {
		return err
	}
	trees, err := heirloom.trees.ListTrees(heirloom.ctx(cmd.Context()))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, t := range trees {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Name, t.SourceDocument, t.UploadDate.Format("2006-01-02"))
	}
	return nil
}

func runTreeDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "tree id")
	if err != nil {
		return err
	}
	if err := heirloom.open(); err != nil {
		return err
	}
	if err := heirloom.trees.DeleteTree(heirloom.ctx(cmd.Context()), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted tree %d\n", id)
	return nil
}

func runTreeRepair(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "tree id")
	if err != nil {
		return err
	}
	if err := heirloom.open(); err != nil {
		return err
	}
	report, err := heirloom.trees.Repair(heirloom.ctx(cmd.Context()), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d families, merged %d\n", report.RemovedFamilies, report.MergedFamilies)
	return nil
}
