// Package taxonomy maps merchant category codes to human-readable categories.
// The table covers the codes most often seen on honeypot cards; lookups on
// unlisted codes simply miss, and callers treat a miss as null enrichment.
package taxonomy

// Entry is the human-readable classification for one MCC
type Entry struct {
	Category    string
	Description string
}

var mccTable = map[string]Entry{
	"4111": {"Transportation", "Local and suburban commuter passenger transportation"},
	"4121": {"Transportation", "Taxicabs and limousines"},
	"4131": {"Transportation", "Bus lines"},
	"4511": {"Travel", "Airlines and air carriers"},
	"4722": {"Travel", "Travel agencies and tour operators"},
	"4812": {"Telecom", "Telecommunication equipment and telephone sales"},
	"4814": {"Telecom", "Telecommunication services"},
	"4816": {"Digital Services", "Computer network and information services"},
	"4829": {"Financial Services", "Wire transfers and money orders"},
	"4899": {"Digital Services", "Cable, satellite, and other pay television and radio"},
	"5045": {"Retail", "Computers, peripherals, and software"},
	"5199": {"Retail", "Nondurable goods not elsewhere classified"},
	"5200": {"Retail", "Home supply warehouse stores"},
	"5311": {"Retail", "Department stores"},
	"5411": {"Grocery", "Grocery stores and supermarkets"},
	"5499": {"Grocery", "Miscellaneous food stores and convenience stores"},
	"5541": {"Automotive", "Service stations"},
	"5542": {"Automotive", "Automated fuel dispensers"},
	"5651": {"Retail", "Family clothing stores"},
	"5732": {"Retail", "Electronics stores"},
	"5734": {"Digital Services", "Computer software stores"},
	"5811": {"Food & Drink", "Caterers"},
	"5812": {"Food & Drink", "Eating places and restaurants"},
	"5813": {"Food & Drink", "Drinking places, bars, taverns"},
	"5814": {"Food & Drink", "Fast food restaurants"},
	"5912": {"Health", "Drug stores and pharmacies"},
	"5921": {"Retail", "Package stores, beer, wine, and liquor"},
	"5942": {"Retail", "Book stores"},
	"5944": {"Retail", "Jewelry, watch, clock, and silverware stores"},
	"5945": {"Retail", "Hobby, toy, and game shops"},
	"5964": {"Direct Marketing", "Direct marketing catalog merchants"},
	"5966": {"Direct Marketing", "Direct marketing outbound telemarketing"},
	"5967": {"Direct Marketing", "Direct marketing inbound telemarketing"},
	"5968": {"Direct Marketing", "Direct marketing continuity/subscription merchants"},
	"5999": {"Retail", "Miscellaneous and specialty retail stores"},
	"6010": {"Financial Services", "Manual cash disbursements"},
	"6011": {"Financial Services", "Automated cash disbursements (ATM)"},
	"6051": {"Financial Services", "Non-financial institutions: currency, crypto, money orders"},
	"6211": {"Financial Services", "Security brokers and dealers"},
	"6300": {"Insurance", "Insurance sales, underwriting, and premiums"},
	"6540": {"Financial Services", "Stored value card purchase and load"},
	"7011": {"Travel", "Lodging, hotels, motels, resorts"},
	"7273": {"Personal Services", "Dating and escort services"},
	"7299": {"Personal Services", "Miscellaneous personal services"},
	"7372": {"Digital Services", "Computer programming and data processing"},
	"7399": {"Business Services", "Business services not elsewhere classified"},
	"7995": {"Gambling", "Betting, casino gaming, lottery tickets"},
	"8398": {"Charity", "Charitable and social service organizations"},
	"8999": {"Professional Services", "Professional services not elsewhere classified"},
	"9399": {"Government", "Government services not elsewhere classified"},
}

// Lookup returns the classification for the given MCC. The second return
// value is false when the code is unknown or empty.
func Lookup(mcc string) (Entry, bool) {
	if mcc == "" {
		return Entry{}, false
	}
	e, ok := mccTable[mcc]
	return e, ok
}
