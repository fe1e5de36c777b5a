package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/dberrors"
	"github.com/product-os/autumndb-sub002/internal/mask"
)

var (
	maskSessionID    string
	maskSchemaPath   string
	maskFixturesPath string
)

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Compose the effective mask for a session",
	Long: "Composes a session's effective permission mask and merges it into a caller schema, reading " +
		"the session/actor/role/organization contracts it needs from a directory of fixture JSON files " +
		"(one file per slug, plus orgs.json listing the organizations with \"has member\" links) — this " +
		"module treats the database as an external collaborator and has no live driver to query here.",
	RunE: runMask,
}

func init() {
	maskCmd.Flags().StringVar(&maskSessionID, "session", "", "Session id to compose a mask for")
	maskCmd.Flags().StringVar(&maskSchemaPath, "schema", "", "Path to the caller's JSON-Schema document (default: read from stdin)")
	maskCmd.Flags().StringVar(&maskFixturesPath, "fixtures", "", "Directory of session/actor/role/organization fixture JSON files")
	maskCmd.MarkFlagRequired("session")
	maskCmd.MarkFlagRequired("fixtures")
}

func runMask(cmd *cobra.Command, args []string) error {
	raw, err := readInput(maskSchemaPath)
	if err != nil {
		return err
	}
	var caller map[string]any
	if err := gojson.Unmarshal(raw, &caller); err != nil {
		return fmt.Errorf("decode caller schema: %w", err)
	}

	loader := &fixtureLoader{dir: maskFixturesPath}
	effective, err := mask.ComposeMask(context.Background(), loader, maskSessionID, caller)
	if err != nil {
		return fmt.Errorf("compose mask: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(effective)
}

// fixtureLoader implements mask.Loader by reading one JSON file per slug
// from a directory — the CLI's stand-in for the live database collaborator
// this module otherwise never implements directly.
type fixtureLoader struct {
	dir string
}

func (f *fixtureLoader) LoadSession(ctx context.Context, id string) (*contract.Contract, error) {
	return f.readContract(fmt.Sprintf("session-%s.json", id), "session", id)
}

func (f *fixtureLoader) LoadBySlug(ctx context.Context, slug string) (*contract.Contract, error) {
	return f.readContract(filepath.Base(slug)+".json", "contract", slug)
}

func (f *fixtureLoader) OrganizationsWithMember(ctx context.Context, actorID uuid.UUID) ([]*contract.Contract, error) {
	raw, err := os.ReadFile(filepath.Join(f.dir, "orgs.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var orgs []*contract.Contract
	if err := gojson.Unmarshal(raw, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (f *fixtureLoader) readContract(filename, kind, ref string) (*contract.Contract, error) {
	raw, err := os.ReadFile(filepath.Join(f.dir, filename))
	if os.IsNotExist(err) {
		return nil, &dberrors.NoElement{Kind: kind, Ref: ref}
	}
	if err != nil {
		return nil, err
	}
	var c contract.Contract
	if err := gojson.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", filename, err)
	}
	return &c, nil
}
