package bot

// User-facing reply texts.
const (
	msgAskPlaceName        = "Please type the name of the place you want to search for."
	msgAskLocation         = "Please share your location and type a category (e.g., restaurant, temple)."
	msgAskCategory         = "Now type a category (e.g., restaurant, temple)."
	msgNeedLocation        = "Please share your location and then type a category."
	msgPlaceNotFound       = "Sorry, I could not find that place."
	msgNoneNearby          = "Sorry, I could not find any places in that category nearby."
	msgUseMenuFirst        = "To search nearby, please use the menu and select \"Nearby Places\" first."
	msgNotUnderstood       = "Sorry, I did not understand that. Type a travel question or use the menu."
	msgTemporaryProblem    = "Sorry, something went wrong on our side. Please try again in a moment."
	msgFinishPlaceName     = "You are searching for a place. " + msgAskPlaceName
	msgFinishNearbyPending = "You are searching nearby. " + msgNeedLocation
	msgFinishCategory      = "You are searching nearby. " + msgAskCategory
)
