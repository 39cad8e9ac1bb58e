package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vikasavnish/heirloom/internal/models"
	"github.com/vikasavnish/heirloom/internal/services"
)

var (
	familyID      uint
	migrateIDs    []uint
	childRelation string
)

func runAddParent(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "person id")
	if err != nil {
		return err
	}
	slot := services.ParentSlot(strings.ToLower(args[1]))
	if err := heirloom.open(); err != nil {
		return err
	}
	parent, err := heirloom.rels.AddParent(heirloom.ctx(cmd.Context()), id, slot, personRef())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now the %s of %d\n", describe(parent), slot, id)
	return nil
}

func runAddPartner(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "person id")
	if err != nil {
		return err
	}
	if err := heirloom.open(); err != nil {
		return err
	}
	opts := services.PartnerOptions{FamilyID: familyID}
	if cmd.Flags().Changed("migrate") {
		opts.MigrateChildIDs = append([]uint{}, migrateIDs...)
	}
	fam, err := heirloom.rels.AddPartner(heirloom.ctx(cmd.Context()), id, personRef(), opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Family %d records the couple\n", fam.ID)
	return nil
}

func runAddChild(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "person id")
	if err != nil {
		return err
	}
	if err := heirloom.open(); err != nil {
		return err
	}
	relation := models.ChildRelation(strings.ToUpper(childRelation))
	child, err := heirloom.rels.AddChild(heirloom.ctx(cmd.Context()), id, personRef(), familyID, relation)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now a child of %d\n", describe(child), id)
	return nil
}

func runRemoveRelation(cmd *cobra.Command, args []string) error {
	kind, err := services.ParseRelationshipKind(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	personID, err := parseID(args[1], "person id")
	if err != nil {
		return err
	}
	relatedID, err := parseID(args[2], "related person id")
	if err != nil {
		return err
	}
	if err := heirloom.open(); err != nil {
		return err
	}
	if err := heirloom.rels.RemoveRelationship(heirloom.ctx(cmd.Context()), kind, personID, relatedID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %d of %d\n", kind, relatedID, personID)
	return nil
}
