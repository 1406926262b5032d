package charts

// Set1 is the qualitative palette used to tell months apart
var Set1 = []string{
	"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00",
	"#ffff33", "#a65628", "#f781bf", "#999999",
}

// Viridis is the sequential scale of the weighted margin bars
var Viridis = []string{
	"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// Fixed colours of the sales/cost comparison
const (
	SalesColor = "#1f77b4"
	CostsColor = "#d62728"
)

// monthColor cycles through Set1 so any number of months gets a colour
func monthColor(i int) string {
	return Set1[i%len(Set1)]
}
