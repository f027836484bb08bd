// Package loadgame imports play-by-play CSV files into the replay store.
package loadgame

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/louisbranch/dugout/internal/platform/config"
	"github.com/louisbranch/dugout/internal/services/replay/domain/play"
	"github.com/louisbranch/dugout/internal/services/replay/storage"
	"github.com/louisbranch/dugout/internal/services/replay/storage/sqlite"
)

// Config holds loadgame command configuration.
type Config struct {
	DBPath      string `env:"REPLAY_DB_PATH" envDefault:"data/replay.db"`
	GameID      string `env:"LOADGAME_GAME_ID"`
	PlaysPath   string `env:"LOADGAME_PLAYS_PATH"`
	LineupPath  string `env:"LOADGAME_LINEUP_PATH"`
	PlayersPath string `env:"LOADGAME_PLAYERS_PATH"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The replay SQLite database path")
	fs.StringVar(&cfg.GameID, "game", cfg.GameID, "Game identifier to import under")
	fs.StringVar(&cfg.PlaysPath, "plays", cfg.PlaysPath, "CSV file with the play-by-play log")
	fs.StringVar(&cfg.LineupPath, "lineup", cfg.LineupPath, "CSV file with both starting lineups")
	fs.StringVar(&cfg.PlayersPath, "players", cfg.PlayersPath, "Optional CSV file with player display names")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.GameID == "" {
		return Config{}, fmt.Errorf("game id is required")
	}
	if cfg.PlaysPath == "" || cfg.LineupPath == "" {
		return Config{}, fmt.Errorf("plays and lineup files are required")
	}
	return cfg, nil
}

// Run imports the configured files into the store.
func Run(ctx context.Context, cfg Config) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}()

	slots, err := readFile(cfg.LineupPath, ParseLineup)
	if err != nil {
		return fmt.Errorf("read lineup: %w", err)
	}
	for _, slot := range slots {
		if err := store.PutStartingSlot(ctx, cfg.GameID, slot); err != nil {
			return fmt.Errorf("import starting slot: %w", err)
		}
	}

	plays, err := readFile(cfg.PlaysPath, func(r io.Reader) ([]play.Record, error) {
		return ParsePlays(r, cfg.GameID)
	})
	if err != nil {
		return fmt.Errorf("read plays: %w", err)
	}
	for _, record := range plays {
		if err := store.PutPlay(ctx, record); err != nil {
			return fmt.Errorf("import play %d: %w", record.Index, err)
		}
	}

	if cfg.PlayersPath != "" {
		roster, err := readFile(cfg.PlayersPath, ParsePlayers)
		if err != nil {
			return fmt.Errorf("read players: %w", err)
		}
		for _, player := range roster {
			if err := store.PutPlayer(ctx, player); err != nil {
				return fmt.Errorf("import player %s: %w", player.ID, err)
			}
		}
	}

	log.Printf("imported game %s: %d plays, %d lineup slots", cfg.GameID, len(plays), len(slots))
	return nil
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parse(file)
}

// ParsePlays reads the play-by-play CSV. Columns:
//
//	index,inning,half,batting_team,fielding_team,batter,pitcher,outs,runs,
//	runner1,runner2,runner3,event_code,f2,f3,f4,f5,f6,f7,f8,f9
//
// A header row is required; fielder columns may be empty.
func ParsePlays(r io.Reader, gameID string) ([]play.Record, error) {
	rows, err := readRows(r, 21)
	if err != nil {
		return nil, err
	}

	var records []play.Record
	for i, row := range rows {
		record := play.Record{
			GameID:         gameID,
			Half:           play.Half(strings.ToUpper(row[2])),
			BattingTeamID:  row[3],
			FieldingTeamID: row[4],
			BatterID:       row[5],
			PitcherID:      row[6],
			RunnerFirstID:  row[9],
			RunnerSecondID: row[10],
			RunnerThirdID:  row[11],
			EventCode:      row[12],
		}
		if record.Index, err = strconv.Atoi(row[0]); err != nil {
			return nil, fmt.Errorf("row %d: parse index: %w", i+1, err)
		}
		if record.Inning, err = strconv.Atoi(row[1]); err != nil {
			return nil, fmt.Errorf("row %d: parse inning: %w", i+1, err)
		}
		if record.Half != play.HalfTop && record.Half != play.HalfBottom {
			return nil, fmt.Errorf("row %d: half must be TOP or BOTTOM", i+1)
		}
		if record.Outs, err = atoiOrZero(row[7]); err != nil {
			return nil, fmt.Errorf("row %d: parse outs: %w", i+1, err)
		}
		if record.Runs, err = atoiOrZero(row[8]); err != nil {
			return nil, fmt.Errorf("row %d: parse runs: %w", i+1, err)
		}
		for position := play.PositionMin; position <= play.PositionMax; position++ {
			fielder := row[13+position-play.PositionMin]
			if fielder == "" {
				continue
			}
			if record.Fielders == nil {
				record.Fielders = map[int]string{}
			}
			record.Fielders[position] = fielder
		}
		records = append(records, record)
	}
	return records, nil
}

// ParseLineup reads the starting lineup CSV. Columns: team,player,order,position.
func ParseLineup(r io.Reader) ([]play.StartingSlot, error) {
	rows, err := readRows(r, 4)
	if err != nil {
		return nil, err
	}

	var slots []play.StartingSlot
	for i, row := range rows {
		slot := play.StartingSlot{
			TeamID:   row[0],
			PlayerID: row[1],
			Position: row[3],
		}
		if slot.BattingOrder, err = strconv.Atoi(row[2]); err != nil {
			return nil, fmt.Errorf("row %d: parse batting order: %w", i+1, err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// ParsePlayers reads the roster CSV. Columns: id,name,team.
func ParsePlayers(r io.Reader) ([]storage.Player, error) {
	rows, err := readRows(r, 3)
	if err != nil {
		return nil, err
	}

	var roster []storage.Player
	for _, row := range rows {
		roster = append(roster, storage.Player{ID: row[0], Name: row[1], TeamID: row[2]})
	}
	return roster, nil
}

func readRows(r io.Reader, columns int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = columns
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("file has no data rows")
	}
	return rows[1:], nil
}

func atoiOrZero(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
