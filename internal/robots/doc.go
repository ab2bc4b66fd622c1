// Package robots gates crawl traffic on the target site's robots.txt.
//
// A Guard covers one host. The robots.txt file is fetched lazily on the
// first query and at most once per Guard. Every failure mode (missing
// file, unreachable server, unparsable rules) fails open: the guard only
// restricts crawling when the site serves a parsable file that asks for it.
package robots
