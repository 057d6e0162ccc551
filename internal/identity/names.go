package identity

var adjectives = []string{
	"cosmic", "thunder", "velvet", "neon", "shadow", "crystal", "phantom",
	"golden", "iron", "arctic", "blazing", "crimson", "mystic", "quantum",
	"swift", "silent", "brave", "clever", "fierce", "noble", "lunar",
	"solar", "frosty", "ember", "coral", "azure", "scarlet", "jade",
	"obsidian", "silver", "copper", "ruby", "amber", "ivory", "onyx",
	"turbo", "rapid", "primal", "vivid", "bold", "keen", "wild",
	"stormy", "dusty", "pixel", "cyber", "stealth", "sonic", "atomic",
	"radiant",
}

var animals = []string{
	"penguin", "falcon", "panther", "wolf", "dragon", "phoenix", "tiger",
	"cobra", "raven", "hawk", "fox", "bear", "shark", "eagle", "lynx",
	"otter", "viper", "mustang", "jaguar", "puma", "dolphin", "mantis",
	"condor", "badger", "bison", "crane", "gecko", "heron", "ibex",
	"koala", "lemur", "moose", "narwhal", "osprey", "parrot", "quail",
	"raptor", "salmon", "toucan", "urchin", "walrus", "yak", "zebra",
	"coyote", "ferret", "gorilla", "hyena", "iguana", "jackal", "octopus",
}
