// Package proofgen implements the commitment tooling command: it turns a
// hidden board file into the Merkle root to register at instantiation, and
// produces the reveal payload for a single cell.
package proofgen

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/louisbranch/broadside/internal/battleship/domain"
	"github.com/louisbranch/broadside/internal/battleship/proof"
	entrypoint "github.com/louisbranch/broadside/internal/platform/cmd"
)

// Config holds proofgen command configuration.
type Config struct {
	BoardPath string `env:"BROADSIDE_PROOFGEN_BOARD" envDefault:"board.json"`
	Field     string `env:"BROADSIDE_PROOFGEN_FIELD"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.BoardPath, "board", cfg.BoardPath, "Path to the hidden board file")
	fs.StringVar(&cfg.Field, "field", cfg.Field, "Cell to build a reveal payload for, as row,col (omit for the commitment root)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// boardFile is the player's hidden board on disk: identity, stake, and the
// full cell grid that never leaves the player's machine.
type boardFile struct {
	Address domain.Address `json:"address"`
	Stake   uint64         `json:"stake"`
	Board   [][]bool       `json:"board"`
}

// commitment is what the player registers at instantiation.
type commitment struct {
	Address domain.Address `json:"address"`
	Stake   uint64         `json:"stake"`
	Board   string         `json:"board"`
}

// revealPayload is the play message body for one cell.
type revealPayload struct {
	Field domain.Coord `json:"field"`
	Value bool         `json:"value"`
	Proof []proof.Step `json:"proof"`
}

func loadBoardFile(path string) (boardFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return boardFile{}, fmt.Errorf("read board file: %w", err)
	}
	var file boardFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return boardFile{}, fmt.Errorf("parse board file %s: %w", path, err)
	}
	if len(file.Board) == 0 {
		return boardFile{}, fmt.Errorf("board file %s has no cells", path)
	}
	return file, nil
}

// flatten lays the grid out row-major, the cell order the commitment tree
// and the engine's field indexing agree on.
func flatten(grid [][]bool) []bool {
	var cells []bool
	for _, row := range grid {
		cells = append(cells, row...)
	}
	return cells
}

func parseField(s string) (domain.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Coord{}, fmt.Errorf("field must be row,col, got %q", s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return domain.Coord{}, fmt.Errorf("invalid row in %q", s)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return domain.Coord{}, fmt.Errorf("invalid col in %q", s)
	}
	return domain.Coord{Row: row, Col: col}, nil
}

// Run loads the board and writes either the commitment or a reveal payload
// to out as JSON.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceProofGen, func(ctx context.Context) error {
		file, err := loadBoardFile(cfg.BoardPath)
		if err != nil {
			return err
		}

		tree, err := proof.NewTree(flatten(file.Board))
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		if cfg.Field == "" {
			return encoder.Encode(commitment{
				Address: file.Address,
				Stake:   file.Stake,
				Board:   tree.Root(),
			})
		}

		field, err := parseField(cfg.Field)
		if err != nil {
			return err
		}
		cols := len(file.Board[0])
		if field.Row < 0 || field.Row >= len(file.Board) || field.Col < 0 || field.Col >= cols {
			return fmt.Errorf("field %s outside the %dx%d board", field, len(file.Board), cols)
		}
		index := field.Row*cols + field.Col
		path, err := tree.Prove(index)
		if err != nil {
			return err
		}
		return encoder.Encode(revealPayload{
			Field: field,
			Value: file.Board[field.Row][field.Col],
			Proof: path,
		})
	})
}
