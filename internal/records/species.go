package records

import (
	"fmt"
	"strconv"
)

// SpeciesInfo is display metadata for a species code.
type SpeciesInfo struct {
	CommonName string `json:"commonName"`
	SciName    string `json:"sciName"`
}

// Species maps four letter species codes to their names.
var Species = map[string]SpeciesInfo{
	"anpa": {"Pallid Bat", "Antrozous pallidus"},
	"chme": {"Mexican Long-tongued Bat", "Choeronycteris mexicana"},
	"cora": {"Rafinesque's Big-eared Bat", "Corynorhinus rafinesquii"},
	"coto": {"Townsend's Big-eared Bat", "Corynorhinus townsendii"},
	"epfu": {"Big Brown Bat", "Eptesicus fuscus"},
	"eufl": {"Florida Bonneted Bat", "Eumops floridanus"},
	"euma": {"Spotted Bat", "Euderma maculatum"},
	"eupe": {"Western Mastiff Bat", "Eumops perotis"},
	"euun": {"Underwood's Bonneted Bat", "Eumops underwoodi"},
	"haba": {"Hawaiian Hoary Bat", "Lasiurus cinereus semotus"},
	"idph": {"Allen's Big-eared Bat", "Idionycteris phyllotis"},
	"labo": {"Eastern Red Bat", "Lasiurus borealis"},
	"laci": {"Hoary Bat", "Lasiurus cinereus"},
	"laeg": {"Southern Yellow Bat", "Lasiurus ega"},
	"lafr": {"Western Red Bat", "Lasiurus frantzii"},
	"lain": {"Northern Yellow Bat", "Lasiurus intermedius"},
	"lano": {"Silver-haired Bat", "Lasionycteris noctivagans"},
	"lase": {"Seminole Bat", "Lasiurus seminolus"},
	"laxa": {"Western Yellow Bat", "Lasiurus xanthinus"},
	"lecu": {"Lesser Long-nosed Bat", "Leptonycteris yerbabuenae"},
	"leni": {"Greater Long-nosed Bat", "Leptonycteris nivalis"},
	"leye": {"Lesser Long-nosed Bat", "Leptonycteris yerbabuenae"},
	"maca": {"California Leaf-nosed Bat", "Macrotus californicus"},
	"mome": {"Ghost-faced Bat", "Mormoops megalophylla"},
	"myar": {"Southwestern Myotis", "Myotis auriculus"},
	"myau": {"Southeastern Myotis", "Myotis austroriparius"},
	"myca": {"California Myotis", "Myotis californicus"},
	"myci": {"Western Small-footed Bat", "Myotis ciliolabrum"},
	"myev": {"Long-Eared Myotis", "Myotis evotis"},
	"mygr": {"Gray Bat", "Myotis grisescens"},
	"myke": {"Keen's Myotis", "Myotis keenii"},
	"myle": {"Eastern Small-footed Myotis", "Myotis leibii"},
	"mylu": {"Little Brown Bat", "Myotis lucifugus"},
	"myoc": {"Arizona Myotis", "Myotis occultus"},
	"myse": {"Northern Long-eared Myotis", "Myotis septentrionalis"},
	"myso": {"Indiana Bat", "Myotis sodalis"},
	"myth": {"Fringed Bat", "Myotis thysanodes"},
	"myve": {"Cave Myotis", "Myotis velifer"},
	"myvo": {"Long-legged Myotis", "Myotis volans"},
	"myyu": {"Yuma Myotis", "Myotis yumanensis"},
	"nyfe": {"Pocketed Free-tailed Bat", "Nyctinomops femorosaccus"},
	"nyhu": {"Evening Bat", "Nycticeius humeralis"},
	"nyma": {"Big Free-tailed Bat", "Nyctinomops macrotis"},
	"pahe": {"Canyon Bat", "Parastrellus hesperus"},
	"pesu": {"Tricolored Bat", "Perimyotis subflavus"},
	"tabr": {"Mexican Free-tailed Bat", "Tadarida brasiliensis"},
}

// speciesByID is the coding used in the species detections table.
var speciesByID = [...]string{
	"anpa", "chme", "cora", "coto", "epfu", "eufl", "euma", "eupe", "euun", "haba",
	"idph", "labo", "laci", "laeg", "lafr", "lain", "lano", "lase", "laxa", "lecu",
	"leni", "leye", "maca", "mome", "myar", "myau", "myca", "myci", "myev", "mygr",
	"myke", "myle", "mylu", "myoc", "myse", "myso", "myth", "myve", "myvo", "myyu",
	"nyfe", "nyhu", "nyma", "pahe", "pesu", "tabr",
}

// DecodeSpeciesID maps a coded species id ("01".."46", with or without
// zero padding) to its species code.
func DecodeSpeciesID(id string) (string, bool) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return "", false
	}
	return DecodeSpeciesNumber(n)
}

// DecodeSpeciesNumber maps a numeric species id to its species code.
func DecodeSpeciesNumber(n int) (string, bool) {
	if n < 1 || n > len(speciesByID) {
		return "", false
	}
	return speciesByID[n-1], true
}

// SpeciesLabel returns "Common Name (Sci name)" or the code itself if unknown.
func SpeciesLabel(code string) string {
	info, ok := Species[code]
	if !ok {
		return code
	}
	return fmt.Sprintf("%s (%s)", info.CommonName, info.SciName)
}

// DecodeSpecies is a load transform that replaces a coded species id with
// its species code. Unknown ids become missing rather than aborting the load.
func DecodeSpecies(r *Record) {
	if _, known := Species[r.Species]; known {
		return
	}
	code, ok := DecodeSpeciesID(r.Species)
	if !ok {
		*r = r.WithNull(FieldSpecies)
		r.Species = ""
		return
	}
	r.Species = code
}
