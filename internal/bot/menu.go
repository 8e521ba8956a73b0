package bot

// Command is one entry of the bot's command menu
type Command struct {
	Name        string
	Description string
}

// Commands is published to Telegram on startup. Admin commands stay
// unlisted.
var Commands = []Command{
	{"start", "Start the bot"},
	{"register", "Register for tournaments"},
	{"deposit", "Deposit money"},
	{"withdraw", "Withdraw your earnings"},
	{"tournaments", "View available tournaments"},
	{"join", "Join a tournament by code"},
	{"mytournaments", "Tournaments you joined"},
	{"profile", "View your profile"},
	{"balance", "Check your balance"},
	{"referral", "Get your referral link"},
	{"leaderboard", "View top players"},
	{"notify", "Turn tournament announcements on or off"},
	{"cancel", "Stop the current step"},
	{"help", "Get help"},
}

// Reply keyboard labels
const (
	labelRegister    = "📝 Register"
	labelHelp        = "ℹ️ Help"
	labelProfile     = "👤 Profile"
	labelTournaments = "🏆 Tournaments"
	labelDeposit     = "💰 Deposit"
	labelWithdraw    = "💸 Withdraw"
	labelLeaderboard = "📊 Leaderboard"
	labelReferral    = "🔗 Referral"
	labelMine        = "🎮 My Tournaments"
	labelCreate      = "➕ Create Tournament"
	labelResults     = "📋 Tournament Results"
	labelWithdrawals = "🏦 Pending Withdrawals"
	labelBroadcast   = "📢 Broadcast Message"
	labelAnalytics   = "📈 Analytics"
)

// labelCommands maps keyboard labels onto the command they stand for
var labelCommands = map[string]string{
	labelRegister:    "register",
	labelHelp:        "help",
	labelProfile:     "profile",
	labelTournaments: "tournaments",
	labelDeposit:     "deposit",
	labelWithdraw:    "withdraw",
	labelLeaderboard: "leaderboard",
	labelReferral:    "referral",
	labelMine:        "mytournaments",
	labelCreate:      "create_tournament",
	labelResults:     "results",
	labelWithdrawals: "withdrawals",
	labelBroadcast:   "broadcast",
	labelAnalytics:   "analytics",
}

var guestMenu = [][]string{
	{labelRegister},
	{labelHelp, labelProfile},
}

var playerMenu = [][]string{
	{labelTournaments, labelDeposit},
	{labelWithdraw, labelProfile},
	{labelLeaderboard, labelReferral},
	{labelMine, labelHelp},
}

var adminRows = [][]string{
	{labelCreate, labelResults},
	{labelWithdrawals},
	{labelBroadcast, labelAnalytics},
}

// menuFor picks the reply keyboard for a user's standing
func menuFor(registered, admin bool) [][]string {
	if !registered && !admin {
		return guestMenu
	}
	rows := playerMenu
	if !registered {
		rows = guestMenu
	}
	if admin {
		rows = append(append([][]string{}, rows...), adminRows...)
	}
	return rows
}
