package extract

import "strings"

type countryFlag struct {
	key  string
	flag string
}

// countryFlags is ordered: the substring fallback in CountryFlag returns the
// first key contained in the input.
var countryFlags = []countryFlag{
	{"venezuela", "🇻🇪"}, {"ve", "🇻🇪"},
	{"brazil", "🇧🇷"}, {"br", "🇧🇷"},
	{"argentina", "🇦🇷"}, {"ar", "🇦🇷"},
	{"colombia", "🇨🇴"}, {"co", "🇨🇴"},
	{"usa", "🇺🇸"}, {"us", "🇺🇸"}, {"united states", "🇺🇸"},
	{"canada", "🇨🇦"}, {"ca", "🇨🇦"},
	{"mexico", "🇲🇽"}, {"mx", "🇲🇽"},
	{"uk", "🇬🇧"}, {"gb", "🇬🇧"}, {"united kingdom", "🇬🇧"},
	{"germany", "🇩🇪"}, {"de", "🇩🇪"},
	{"france", "🇫🇷"}, {"fr", "🇫🇷"},
	{"italy", "🇮🇹"}, {"it", "🇮🇹"},
	{"spain", "🇪🇸"}, {"es", "🇪🇸"},
	{"russia", "🇷🇺"}, {"ru", "🇷🇺"},
	{"india", "🇮🇳"}, {"in", "🇮🇳"},
	{"china", "🇨🇳"}, {"cn", "🇨🇳"},
	{"japan", "🇯🇵"}, {"jp", "🇯🇵"},
	{"korea", "🇰🇷"}, {"kr", "🇰🇷"},
	{"indonesia", "🇮🇩"}, {"id", "🇮🇩"},
	{"malaysia", "🇲🇾"}, {"my", "🇲🇾"},
	{"philippines", "🇵🇭"}, {"ph", "🇵🇭"},
	{"vietnam", "🇻🇳"}, {"vn", "🇻🇳"},
	{"thailand", "🇹🇭"}, {"th", "🇹🇭"},
	{"singapore", "🇸🇬"}, {"sg", "🇸🇬"},
	{"pakistan", "🇵🇰"}, {"pk", "🇵🇰"},
	{"bangladesh", "🇧🇩"}, {"bd", "🇧🇩"},
	{"tajikistan", "🇹🇯"}, {"tj", "🇹🇯"},
	{"uzbekistan", "🇺🇿"}, {"uz", "🇺🇿"},
	{"kazakhstan", "🇰🇿"}, {"kz", "🇰🇿"},
	{"ukraine", "🇺🇦"}, {"ua", "🇺🇦"},
	{"poland", "🇵🇱"}, {"pl", "🇵🇱"},
	{"turkey", "🇹🇷"}, {"tr", "🇹🇷"},
	{"saudi", "🇸🇦"}, {"sa", "🇸🇦"},
	{"uae", "🇦🇪"}, {"ae", "🇦🇪"},
	{"egypt", "🇪🇬"}, {"eg", "🇪🇬"},
	{"morocco", "🇲🇦"}, {"ma", "🇲🇦"},
	{"nigeria", "🇳🇬"}, {"ng", "🇳🇬"},
	{"australia", "🇦🇺"}, {"au", "🇦🇺"},
	{"sudan", "🇸🇩"}, {"sd", "🇸🇩"},
}

var countryIndex = func() map[string]string {
	m := make(map[string]string, len(countryFlags))
	for _, c := range countryFlags {
		m[c.key] = c.flag
	}
	return m
}()

// CountryFlag resolves a country name or ISO code to an emoji flag.
// Exact matches win; otherwise the first table key contained in name is
// used. Unknown or empty input yields Globe.
func CountryFlag(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return Globe
	}
	if flag, ok := countryIndex[lower]; ok {
		return flag
	}
	for _, c := range countryFlags {
		if strings.Contains(lower, c.key) {
			return c.flag
		}
	}
	return Globe
}
