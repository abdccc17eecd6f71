// Package admin implements the administrator surface of the economy:
// granting and removing money, resetting balances, guild statistics and
// per-guild setting overrides. Every operation is gated on the caller
// holding the Administrator permission in the guild.
package admin

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Company-Discord/economy-bot/internal/common"
	"github.com/Company-Discord/economy-bot/internal/features/economy"
	"github.com/Company-Discord/economy-bot/internal/features/settings"
)

type Service struct {
	economy  *economy.Service
	settings *settings.Service
}

func NewService(economySvc *economy.Service, settingsSvc *settings.Service) *Service {
	return &Service{economy: economySvc, settings: settingsSvc}
}

// AddMoney credits amount to the user's cash or bank pool.
func (s *Service) AddMoney(ctx context.Context, guildID, adminID, userID, amount int64, toBank, isAdmin bool) (*economy.BalanceRecord, error) {
	if !isAdmin {
		return nil, common.ErrNotAdmin
	}
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	cash, bank := amount, int64(0)
	if toBank {
		cash, bank = 0, amount
	}
	rec, err := s.economy.AdminAdjust(ctx, guildID, userID, cash, bank)
	if err != nil {
		return nil, err
	}
	s.logAction(guildID, adminID, userID, "add-money", amount)
	return rec, nil
}

// RemoveMoney debits amount from the user's cash or bank pool. Removing more
// than the pool holds fails with ErrInsufficientFunds.
func (s *Service) RemoveMoney(ctx context.Context, guildID, adminID, userID, amount int64, fromBank, isAdmin bool) (*economy.BalanceRecord, error) {
	if !isAdmin {
		return nil, common.ErrNotAdmin
	}
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	cash, bank := -amount, int64(0)
	if fromBank {
		cash, bank = 0, -amount
	}
	rec, err := s.economy.AdminAdjust(ctx, guildID, userID, cash, bank)
	if err != nil {
		return nil, err
	}
	s.logAction(guildID, adminID, userID, "remove-money", -amount)
	return rec, nil
}

// Reset zeroes the user's cash and bank, keeping the row and its lifetime
// counters. Returns the total that was removed.
func (s *Service) Reset(ctx context.Context, guildID, adminID, userID int64, isAdmin bool) (int64, error) {
	if !isAdmin {
		return 0, common.ErrNotAdmin
	}
	removed, err := s.economy.ResetBalance(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	s.logAction(guildID, adminID, userID, "reset", -removed)
	return removed, nil
}

// Stats aggregates the guild's economy.
func (s *Service) Stats(ctx context.Context, guildID int64, isAdmin bool) (*economy.GuildStats, error) {
	if !isAdmin {
		return nil, common.ErrNotAdmin
	}
	return s.economy.GuildStats(ctx, guildID)
}

// SetSetting overrides one per-guild settings field.
func (s *Service) SetSetting(ctx context.Context, guildID, adminID int64, field, value string, isAdmin bool) (*settings.Settings, error) {
	if !isAdmin {
		return nil, common.ErrNotAdmin
	}
	updated, err := s.settings.SetOverride(ctx, guildID, field, value)
	if err != nil {
		return nil, err
	}
	s.logAction(guildID, adminID, 0, "set "+field, 0)
	return updated, nil
}

func (s *Service) logAction(guildID, adminID, userID int64, action string, amount int64) {
	logrus.WithFields(logrus.Fields{
		"guild_id": guildID,
		"admin_id": adminID,
		"user_id":  userID,
		"action":   action,
		"amount":   amount,
	}).Info("Admin economy action")
}
