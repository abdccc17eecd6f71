package bot

import "github.com/bwmarrin/discordgo"

// commandDefinitions is every slash command the bot registers on startup.
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "Show a balance",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Whose balance to show (defaults to you)",
				},
			},
		},
		{Name: "work", Description: "Do some honest work for cash"},
		{Name: "slut", Description: "Risky work, better pay, chance of a fine"},
		{Name: "crime", Description: "Commit a crime for a big payout, or a big fine"},
		{
			Name:        "rob",
			Description: "Try to steal from someone's cash",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "target",
					Description: "Who to rob",
					Required:    true,
				},
			},
		},
		{
			Name:        "give",
			Description: "Give cash to another user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Recipient",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "How much cash to give",
					Required:    true,
					MinValue:    float64Ptr(1),
				},
			},
		},
		{
			Name:        "deposit",
			Description: "Move cash into your bank",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "amount",
					Description: "Amount or \"all\"",
					Required:    true,
				},
			},
		},
		{
			Name:        "withdraw",
			Description: "Move bank funds back to cash",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "amount",
					Description: "Amount or \"all\"",
					Required:    true,
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Richest users of this guild",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Page number",
					MinValue:    float64Ptr(1),
				},
			},
		},
		{
			Name:        "history",
			Description: "Recent transactions",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Whose history to show (defaults to you)",
				},
			},
		},
		{
			Name:        "eco-admin",
			Description: "Economy administration",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add-money",
					Description: "Credit money to a user",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Recipient", Required: true},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "How much", Required: true, MinValue: float64Ptr(1)},
						{
							Type: discordgo.ApplicationCommandOptionString, Name: "pool", Description: "cash or bank",
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "cash", Value: "cash"},
								{Name: "bank", Value: "bank"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove-money",
					Description: "Debit money from a user",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Target", Required: true},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "How much", Required: true, MinValue: float64Ptr(1)},
						{
							Type: discordgo.ApplicationCommandOptionString, Name: "pool", Description: "cash or bank",
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "cash", Value: "cash"},
								{Name: "bank", Value: "bank"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reset",
					Description: "Zero a user's cash and bank",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Target", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stats",
					Description: "Guild economy statistics",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Override a guild economy setting",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "field", Description: "Setting name, e.g. rob_cooldown", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "value", Description: "New value", Required: true},
					},
				},
			},
		},
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}
