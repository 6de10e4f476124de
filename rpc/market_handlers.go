package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	ledger "escrowmarket/core/state"
	"escrowmarket/core/types"
	"escrowmarket/crypto"
	"escrowmarket/indexer"
	"escrowmarket/native/market"
)

func decodeParam(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single parameter object"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}

func parseAddressParam(field, value string) ([20]byte, *RPCError) {
	addr, err := crypto.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return addr, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s", field), Data: err.Error()}
	}
	return addr, nil
}

func serverError(err error) *RPCError {
	return &RPCError{Code: codeServerError, Message: err.Error()}
}

func (s *Server) handleSubmitGroup(req *RPCRequest) (interface{}, *RPCError) {
	var params SubmitGroupParams
	if rpcErr := decodeParam(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if len(params.Transactions) == 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "transactions required"}
	}
	for i, tx := range params.Transactions {
		if tx == nil {
			return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("transaction %d is null", i)}
		}
	}
	result, err := s.node.SubmitGroup(types.Group(params.Transactions))
	if err != nil {
		return nil, rejection(s.logger, err)
	}
	s.logger.Info("group committed",
		"hash", hex.EncodeToString(result.Hash),
		"transactions", len(params.Transactions),
		"events", len(result.Events))
	return SubmitGroupResult{
		Hash:   "0x" + hex.EncodeToString(result.Hash),
		Assets: result.Assets,
		Events: result.Events,
	}, nil
}

func (s *Server) handleGetListing(req *RPCRequest) (interface{}, *RPCError) {
	var params AssetParams
	if rpcErr := decodeParam(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	listing, err := s.node.Listing(params.Asset)
	if err != nil {
		if errors.Is(err, market.ErrNotListed) {
			return nil, &RPCError{Code: codeRejected, Message: err.Error(), Data: "NotListed"}
		}
		return nil, serverError(err)
	}
	return newListingResult(listing), nil
}

func (s *Server) handleListings(req *RPCRequest) (interface{}, *RPCError) {
	listings, err := s.node.Listings()
	if err != nil {
		return nil, serverError(err)
	}
	out := make([]ListingResult, 0, len(listings))
	for _, l := range listings {
		out = append(out, newListingResult(l))
	}
	return out, nil
}

func (s *Server) handleStats(req *RPCRequest) (interface{}, *RPCError) {
	stats, err := s.node.MarketStats()
	if err != nil {
		return nil, serverError(err)
	}
	cfg := s.node.MarketConfig()
	return StatsResult{
		MarketStats: stats,
		Config: MarketConfigResult{
			Admin:          crypto.FormatAddress(cfg.Admin),
			Program:        crypto.FormatAddress(cfg.Program),
			PlatformFeeBps: cfg.PlatformFeeBps,
			ListingRent:    cfg.Rent.ListingCost(),
			CustodyCost:    cfg.Rent.CustodyCost,
		},
	}, nil
}

func (s *Server) handleAccount(req *RPCRequest) (interface{}, *RPCError) {
	var params AccountParams
	if rpcErr := decodeParam(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	account, err := s.node.Account(addr)
	if err != nil {
		return nil, serverError(err)
	}
	result := AccountResult{
		Address:   crypto.FormatAddress(addr),
		Nonce:     account.Nonce,
		Balance:   account.Balance,
		Reserved:  account.Reserved,
		Available: account.Available,
	}
	if params.Asset != nil {
		quantity, optedIn, err := s.node.AssetBalance(addr, *params.Asset)
		if err != nil {
			return nil, serverError(err)
		}
		result.Holding = &AssetHolding{Asset: *params.Asset, OptedIn: optedIn, Quantity: quantity}
	}
	return result, nil
}

func (s *Server) handleAsset(req *RPCRequest) (interface{}, *RPCError) {
	var params AssetParams
	if rpcErr := decodeParam(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	info, err := s.node.Asset(params.Asset)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownAsset) {
			return nil, &RPCError{Code: codeRejected, Message: err.Error(), Data: "UnknownAsset"}
		}
		return nil, serverError(err)
	}
	registered, err := s.node.CustodyRegistered(params.Asset)
	if err != nil {
		return nil, serverError(err)
	}
	return AssetResult{
		ID:                info.ID,
		Creator:           crypto.FormatAddress(info.Creator),
		Total:             info.Total,
		Name:              info.Name,
		UnitName:          info.UnitName,
		URL:               info.URL,
		Note:              info.Note,
		CustodyRegistered: registered,
	}, nil
}

func (s *Server) historyUnavailable() *RPCError {
	return &RPCError{Code: codeServerError, Message: "sales history indexer disabled"}
}

func (s *Server) handleSales(ctx context.Context, req *RPCRequest) (interface{}, *RPCError) {
	if s.history == nil {
		return nil, s.historyUnavailable()
	}
	var params SalesParams
	if len(req.Params) > 0 {
		if rpcErr := decodeParam(req, &params); rpcErr != nil {
			return nil, rpcErr
		}
	}
	query := indexer.SalesQuery{Asset: params.Asset, Limit: params.Limit}
	if params.Seller != "" {
		addr, rpcErr := parseAddressParam("seller", params.Seller)
		if rpcErr != nil {
			return nil, rpcErr
		}
		query.Seller = crypto.FormatAddress(addr)
	}
	if params.Buyer != "" {
		addr, rpcErr := parseAddressParam("buyer", params.Buyer)
		if rpcErr != nil {
			return nil, rpcErr
		}
		query.Buyer = crypto.FormatAddress(addr)
	}
	sales, err := s.history.Sales(ctx, query)
	if err != nil {
		if errors.Is(err, indexer.ErrInvalidQuery) {
			return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
		}
		return nil, serverError(err)
	}
	out := make([]SaleResult, 0, len(sales))
	for _, sale := range sales {
		out = append(out, newSaleResult(sale))
	}
	return out, nil
}

func (s *Server) handleHistory(ctx context.Context, req *RPCRequest) (interface{}, *RPCError) {
	if s.history == nil {
		return nil, s.historyUnavailable()
	}
	var params HistoryParams
	if rpcErr := decodeParam(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	entries, err := s.history.History(ctx, params.Asset, params.Limit)
	if err != nil {
		if errors.Is(err, indexer.ErrInvalidQuery) {
			return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
		}
		return nil, serverError(err)
	}
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
			Kind:       e.Kind,
			Seller:     e.Seller,
			Price:      e.Price,
			RoyaltyBps: e.RoyaltyBps,
			Timestamp:  e.CreatedAt,
		})
	}
	return out, nil
}
