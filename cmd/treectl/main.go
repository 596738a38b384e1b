package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/contentgrove/treestore/events"
	"github.com/contentgrove/treestore/treemgr"
	"github.com/contentgrove/treestore/util/dbutil"

	"github.com/urfave/cli/v2"
)

func main() {
	run(os.Args)
}

func run(args []string) {
	app := cli.App{
		Name:  "treectl",
		Usage: "operational tool for the nested-set tree store",
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Value:   "sqlite://./data/treectl/tree.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		importCmd,
		moveCmd,
		verifyCmd,
	}

	app.RunAndExitOnError()
}

func setup(cctx *cli.Context) (*treemgr.TreeManager, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := dbutil.SetupDatabase(cctx.String("db-url"), cctx.Int("max-db-connections"))
	if err != nil {
		return nil, err
	}

	evts := events.NewEventManager()
	go evts.Run()

	return treemgr.NewTreeManager(db, evts, nil)
}

var importCmd = &cli.Command{
	Name:      "import",
	Usage:     "bulk-build a tree from a nested JSON description",
	ArgsUsage: "<description.json>",
	Flags: []cli.Flag{
		&cli.UintFlag{
			Name:  "target",
			Usage: "node id to graft under (omit to create a new root tree)",
		},
		&cli.StringFlag{
			Name:  "position",
			Value: string(treemgr.PositionLastChild),
		},
		&cli.BoolFlag{
			Name:  "suspend-tracking",
			Usage: "skip tree locks; only safe when nothing else is writing",
		},
	},
	Action: func(cctx *cli.Context) error {
		tm, err := setup(cctx)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(cctx.Args().First())
		if err != nil {
			return err
		}
		var desc treemgr.NodeDescription
		if err := json.Unmarshal(raw, &desc); err != nil {
			return fmt.Errorf("failed to parse tree description: %w", err)
		}

		ctx := cctx.Context
		if cctx.Bool("suspend-tracking") {
			ctx = treemgr.WithTrackingSuspended(ctx)
		}

		var built int
		if tid := cctx.Uint("target"); tid != 0 {
			targetNode, err := tm.GetNode(ctx, uint(tid))
			if err != nil {
				return err
			}
			out, err := tm.BuildTree(ctx, &desc, targetNode, treemgr.Position(cctx.String("position")))
			if err != nil {
				return err
			}
			built = len(out)
		} else {
			out, err := tm.BuildTree(ctx, &desc, nil, treemgr.PositionLastChild)
			if err != nil {
				return err
			}
			built = len(out)
			fmt.Printf("new tree id: %d\n", out[0].TreeID)
		}

		fmt.Printf("imported %d nodes\n", built)
		return nil
	},
}

var moveCmd = &cli.Command{
	Name:      "move",
	Usage:     "move a node relative to a target",
	ArgsUsage: "<node-id> <target-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "position",
			Value: string(treemgr.PositionLastChild),
		},
	},
	Action: func(cctx *cli.Context) error {
		tm, err := setup(cctx)
		if err != nil {
			return err
		}
		ctx := cctx.Context

		var nodeID, targetID uint
		if _, err := fmt.Sscanf(cctx.Args().Get(0), "%d", &nodeID); err != nil {
			return fmt.Errorf("bad node id: %w", err)
		}
		node, err := tm.GetNode(ctx, nodeID)
		if err != nil {
			return err
		}

		if cctx.Args().Len() > 1 {
			if _, err := fmt.Sscanf(cctx.Args().Get(1), "%d", &targetID); err != nil {
				return fmt.Errorf("bad target id: %w", err)
			}
			target, err := tm.GetNode(ctx, targetID)
			if err != nil {
				return err
			}
			return tm.MoveNode(ctx, node, target, treemgr.Position(cctx.String("position")))
		}

		// no target: promote to a new root tree
		return tm.MoveNode(ctx, node, nil, treemgr.Position(cctx.String("position")))
	},
}

var verifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "re-scan a tree and report nested-set invariant violations",
	ArgsUsage: "<tree-id>",
	Action: func(cctx *cli.Context) error {
		tm, err := setup(cctx)
		if err != nil {
			return err
		}

		var treeID int64
		if _, err := fmt.Sscanf(cctx.Args().First(), "%d", &treeID); err != nil {
			return fmt.Errorf("bad tree id: %w", err)
		}

		problems, err := tm.VerifyTree(cctx.Context, treeID)
		if err != nil {
			return err
		}
		if len(problems) == 0 {
			fmt.Println("ok")
			return nil
		}
		for _, p := range problems {
			fmt.Println(p)
		}
		return fmt.Errorf("tree %d: %d invariant violations", treeID, len(problems))
	},
}
