package moderation

// bannedTerms always make text unsafe.
var bannedTerms = []string{
	"stupid", "idiot", "dumb", "moron", "imbecile",
	"damn", "hell", "crap", "shit", "fuck", "bitch", "ass", "asshole",
	"retard", "retarded", "fag", "faggot", "dyke",
	"nigger", "nigga", "chink", "gook", "spic", "wetback", "kike",
	"nazi", "hitler", "terrorist", "rapist", "pedophile",
	"ugly", "fat", "skinny", "disgusting", "hideous",
	"kill yourself", "kys", "go die", "waste of space", "piece of shit",
	"stfu", "gtfo", "pos", "sob", "wtf", "omfg", "fu", "fuk", "fck",
	"loser", "pathetic", "worthless", "trash", "garbage", "scum",
}

// contextualTerms are only flagged in strict mode.
var contextualTerms = []string{
	"hate", "kill", "die", "murder", "suicide", "rape", "abuse",
}
