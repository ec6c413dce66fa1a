package discord

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Discord corta en 2000; dejamos margen para el texto alrededor.
const maxInline = 1900

const reportFileName = "away-report.txt"

// asFile decide si el contenido va como adjunto .txt.
func asFile(content string) bool { return len(content) > maxInline }

func reportFile(content string) *discordgo.File {
	plain := strings.ReplaceAll(content, "```", "")
	return &discordgo.File{Name: reportFileName, ContentType: "text/plain", Reader: strings.NewReader(plain)}
}

func SendEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, msg string) error {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("SendEphemeral")
	}
	return err
}

// Defer efímero (para trabajos >3s)
func DeferEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("DeferEphemeral")
	}
	return err
}

func ReplyEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, content string, files ...*discordgo.File) {
	_, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Files:   files,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		// Fallback sólo si todavía no hay respuesta (webhook desconocido)
		var reqErr *discordgo.RESTError
		if errors.As(err, &reqErr) && reqErr.Message != nil && reqErr.Message.Code == discordgo.ErrCodeUnknownWebhook {
			_ = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: content,
					Files:   files,
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
			return
		}
		log.Warn().Err(err).Msg("ReplyEphemeral")
	}
}

// ReplyReport manda el reporte inline o como .txt si no entra.
func ReplyReport(s *discordgo.Session, ic *discordgo.InteractionCreate, text string) {
	if asFile(text) {
		ReplyEphemeral(s, ic, "📊 The report is attached.", reportFile(text))
		return
	}
	ReplyEphemeral(s, ic, text)
}

// SendChannel publica en un canal; los reportes largos van como adjunto.
func SendChannel(s *discordgo.Session, channelID, content string) error {
	var err error
	if asFile(content) {
		_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: "📊 The report is attached.",
			Files:   []*discordgo.File{reportFile(content)},
		})
	} else {
		_, err = s.ChannelMessageSend(channelID, content)
	}
	if err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("SendChannel")
	}
	return err
}

// SendDM abre (o reutiliza) el canal privado con el usuario.
func SendDM(s *discordgo.Session, userID, content string) error {
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("SendDM: open channel")
		return err
	}
	return SendChannel(s, ch.ID, content)
}
