package game

// DefaultWords is the secret word pool. Entries are lower-case and purely alphabetic.
var DefaultWords = []string{
	"anchor", "balloon", "bicycle", "blanket", "breeze", "bridge", "button", "candle",
	"canyon", "castle", "cheese", "cobweb", "compass", "cookie", "crayon", "desert",
	"dolphin", "dragon", "engine", "falcon", "feather", "forest", "garden", "glacier",
	"guitar", "hammock", "harbor", "helmet", "island", "jacket", "jungle", "kettle",
	"ladder", "lantern", "lemon", "magnet", "meadow", "mirror", "monkey", "mountain",
	"napkin", "needle", "orange", "oyster", "paddle", "parrot", "pepper", "pillow",
	"planet", "pocket", "puzzle", "rabbit", "rocket", "saddle", "salmon", "shadow",
	"spider", "sponge", "squirrel", "stable", "tablet", "teapot", "thunder", "ticket",
	"tiger", "tomato", "tunnel", "turtle", "umbrella", "valley", "velvet", "violin",
	"wallet", "walnut", "window", "wizard", "yogurt", "zipper",
}
