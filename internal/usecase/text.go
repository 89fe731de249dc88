package usecase

import "strings"

// User-facing message templates. $CREDITS and $WALLET_ADDRESS are substituted
// before sending.
const (
	introText = `To start a conversation please write */ask* followed by your question.`

	lastReplyText = `Last reply:`

	notEnoughBalanceText = `Your credits: *$CREDITS ONE tokens*. To recharge, send ONE to ` + "`$WALLET_ADDRESS`" + `.`

	chatEndText = `Thanks for using the bot!`

	suspendedText = `The bot is suspended`
)

func replaceBalanceVars(text, credits, address string) string {
	text = strings.ReplaceAll(text, "$CREDITS", credits)
	return strings.ReplaceAll(text, "$WALLET_ADDRESS", address)
}
