package main

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/eon-protocol/minastate"
	"github.com/eon-protocol/minastate/accounts"
)

type ledgerRequest struct {
	LedgerHash string        `json:"ledger_hash"`
	Proof      hexutil.Bytes `json:"proof"`
}

type accountRequest struct {
	LedgerHash string                `json:"ledger_hash"`
	Proof      hexutil.Bytes         `json:"proof"`
	Account    *accounts.AccountData `json:"account"`
}

type verdictResponse struct {
	Event    minastate.EventKind `json:"event"`
	Accepted bool                `json:"accepted"`
	Error    string              `json:"error,omitempty"`
}

type ledgerResponse struct {
	LedgerHash string `json:"ledger_hash"`
	Validated  bool   `json:"validated"`
}

func newServer(n *node) *fiber.App {
	app := fiber.New(fiber.Config{
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    256 * 1024 * 1024,
		AppName:      "minastate",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Content-Length",
		AllowMethods: "GET, POST",
		MaxAge:       12 * 3600,
	}))

	v1 := app.Group("/api").Group("/v1")
	v1.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	v1.Post("/ledger/verify", n.verifyLedger(false))
	v1.Post("/ledger/update", n.verifyLedger(true))
	v1.Get("/ledger/:hash", n.ledgerStatus)
	v1.Post("/account/verify", n.verifyAccount)
	return app
}

func respond(c *fiber.Ctx, kind minastate.EventKind, err error) error {
	resp := verdictResponse{Event: kind, Accepted: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(resp)
}

func (me *node) verifyLedger(update bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ledgerRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		verify := me.state.VerifyLedgerState
		if update {
			verify = me.state.UpdateLedgerProof
		}
		err := verify(c.UserContext(), req.LedgerHash, req.Proof, me.ledger)
		return respond(c, minastate.LedgerVerdict(err), err)
	}
}

func (me *node) ledgerStatus(c *fiber.Ctx) error {
	hash := c.Params("hash")
	ok, err := me.state.IsValidatedLedgerHash(hash)
	if err != nil {
		return err
	}
	return c.JSON(ledgerResponse{LedgerHash: hash, Validated: ok})
}

func (me *node) verifyAccount(c *fiber.Ctx) error {
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Account == nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing account")
	}
	err := me.state.VerifyAccountState(c.UserContext(), req.Account, req.LedgerHash, req.Proof, me.account)
	return respond(c, minastate.AccountVerdict(err), err)
}
