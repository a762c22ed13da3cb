package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// flags
var (
	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "base url of the rafad to talk to",
		Value: "http://localhost:7070",
	}
	identityFlag = &cli.StringFlag{
		Name:  "identity",
		Usage: "identity sent with the request",
	}
	amountFlag = &cli.Uint64Flag{
		Name:     "amount",
		Usage:    "amount in base units",
		Required: true,
	}
	seedFlag = &cli.Uint64Flag{
		Name:     "seed",
		Usage:    "draw seed",
		Required: true,
	}
	roundFlag = &cli.Uint64Flag{
		Name:     "round",
		Usage:    "round id",
		Required: true,
	}
	prizeFlag = &cli.Uint64Flag{
		Name:     "prize",
		Usage:    "prize amount",
		Required: true,
	}
	stakeFlag = &cli.Uint64Flag{
		Name:  "stake",
		Usage: "stake amount",
	}
	offsetFlag = &cli.IntFlag{
		Name:  "offset",
		Usage: "batch offset",
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "batch size",
	}
)

// commands
var (
	adminCmd = &cli.Command{
		Name:  "admin",
		Usage: "Manage the raffle protocol",
		Subcommands: append(
			cli.Commands{},
			seedPrizeCmd,
			initRoundCmd,
			advanceEpochCmd,
			selectWinnerCmd,
			claimRecordCmd,
			delegateCmd,
			deactivateCmd,
			harvestCmd,
			closeCmd,
		),
	}
	seedPrizeCmd = &cli.Command{
		Name:   "seed-prize",
		Usage:  "Top up the prize pool",
		Action: seedPrizeAction,
		Flags:  []cli.Flag{amountFlag},
	}
	initRoundCmd = &cli.Command{
		Name:   "init-round",
		Usage:  "Open the next round",
		Action: initRoundAction,
	}
	advanceEpochCmd = &cli.Command{
		Name:   "advance-epoch",
		Usage:  "Bump the current round's epoch without waiting for the clock",
		Action: advanceEpochAction,
	}
	selectWinnerCmd = &cli.Command{
		Name:   "select-winner",
		Usage:  "Finalize the current round with an explicit seed",
		Action: selectWinnerAction,
		Flags:  []cli.Flag{seedFlag},
	}
	claimRecordCmd = &cli.Command{
		Name:   "claim-record",
		Usage:  "Mint a claim record on the winner's behalf",
		Action: claimRecordAction,
		Flags:  []cli.Flag{roundFlag, prizeFlag, stakeFlag},
	}
	delegateCmd = &cli.Command{
		Name:   "delegate",
		Usage:  "Place a round's stake with the yield source",
		Action: pipelineAction("delegate"),
		Flags:  []cli.Flag{roundFlag},
	}
	deactivateCmd = &cli.Command{
		Name:   "deactivate",
		Usage:  "Begin a stake's exit from the yield source",
		Action: pipelineAction("deactivate"),
		Flags:  []cli.Flag{roundFlag},
	}
	harvestCmd = &cli.Command{
		Name:   "harvest",
		Usage:  "Pull a matured stake back into the pool",
		Action: pipelineAction("harvest"),
		Flags:  []cli.Flag{roundFlag},
	}
	closeCmd = &cli.Command{
		Name:   "close",
		Usage:  "Close the protocol registry",
		Action: closeAction,
	}
	crankCmd = &cli.Command{
		Name:   "crank",
		Usage:  "Crank the round state machine once",
		Action: crankAction,
	}
	snapshotCmd = &cli.Command{
		Name:   "snapshot",
		Usage:  "Record a batch of epoch balance snapshots",
		Action: snapshotAction,
		Flags:  []cli.Flag{offsetFlag, limitFlag},
	}
)

func seedPrizeAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/prize", ctx.String("url"))
	body := fmt.Sprintf(`{"amount": %d}`, ctx.Uint64("amount"))
	if _, err := post(url, body, ctx.String("identity")); err != nil {
		return err
	}
	fmt.Println("prize pool seeded")
	return nil
}

func initRoundAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/rounds", ctx.String("url"))
	res, err := post(url, "", ctx.String("identity"))
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func advanceEpochAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/rounds/epoch", ctx.String("url"))
	if _, err := post(url, "", ctx.String("identity")); err != nil {
		return err
	}
	fmt.Println("epoch advanced")
	return nil
}

func selectWinnerAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/rounds/winner", ctx.String("url"))
	body := fmt.Sprintf(`{"seed": %d}`, ctx.Uint64("seed"))
	res, err := post(url, body, ctx.String("identity"))
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func claimRecordAction(ctx *cli.Context) error {
	url := fmt.Sprintf(
		"%s/v1/admin/rounds/%d/claims", ctx.String("url"), ctx.Uint64("round"),
	)
	body := fmt.Sprintf(
		`{"prize": %d, "stake": %d}`, ctx.Uint64("prize"), ctx.Uint64("stake"),
	)
	res, err := post(url, body, ctx.String("identity"))
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func pipelineAction(op string) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		url := fmt.Sprintf(
			"%s/v1/admin/stakes/%d/%s", ctx.String("url"), ctx.Uint64("round"), op,
		)
		if _, err := post(url, "", ctx.String("identity")); err != nil {
			return err
		}
		fmt.Printf("%s done\n", op)
		return nil
	}
}

func closeAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/admin/close", ctx.String("url"))
	if _, err := post(url, "", ctx.String("identity")); err != nil {
		return err
	}
	fmt.Println("protocol closed")
	return nil
}

func crankAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/crank", ctx.String("url"))
	res, err := post(url, "", ctx.String("identity"))
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func snapshotAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/snapshots", ctx.String("url"))
	body := fmt.Sprintf(
		`{"offset": %d, "limit": %d}`, ctx.Int("offset"), ctx.Int("limit"),
	)
	res, err := post(url, body, ctx.String("identity"))
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func post(url, body, identity string) (string, error) {
	req, err := http.NewRequest("POST", url, strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Add("Content-Type", "application/json")
	if len(identity) > 0 {
		req.Header.Add("X-Rafa-Identity", identity)
	}
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to post: %s", string(buf))
	}
	if len(buf) == 0 {
		return "", nil
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(buf, &pretty); err != nil {
		return string(buf), nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return string(buf), nil
	}
	return string(out), nil
}
