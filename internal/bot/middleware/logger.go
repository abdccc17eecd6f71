package middleware

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// LogInteraction records one inbound slash-command invocation.
func LogInteraction(i *discordgo.InteractionCreate) {
	fields := logrus.Fields{
		"guild_id": i.GuildID,
		"command":  i.ApplicationCommandData().Name,
	}
	if i.Member != nil && i.Member.User != nil {
		fields["user_id"] = i.Member.User.ID
	}
	logrus.WithFields(fields).Info("Command received")
}
