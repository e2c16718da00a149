// Package web gives the chat agent read-only access to the web through a
// shared headless Chromium session driven by Playwright.
//
// Two tools are provided:
//
//   - web_search scrapes the DuckDuckGo HTML endpoint and returns titles,
//     URLs and snippets.
//   - web_extract loads a page and returns its readable text.
//
// The browser is started on first use and closed by Session.Close. Both
// tools take a Fetcher so they can be exercised without a browser.
package web
