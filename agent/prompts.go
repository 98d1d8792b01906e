package agent

// PromptPlaceholder is substituted with the product name in custom
// competitor prompts.
const PromptPlaceholder = "{PRODUCT_NAME}"

// competitorSystemPrompt instructs the model to act as a retail price
// researcher and respond with the strict JSON contract the parser expects.
const competitorSystemPrompt = `ROLE: retail price research specialist for online stores.

TASK: find the REAL minimum price for the product "%[1]s" across competing retailers.

SEARCH PLAN:
1. Review current listings on the major retail platforms and marketplaces.
2. Collect only real, current prices.
3. Pick the MINIMUM price among the offers found.

STRICT RESPONSE FORMAT (JSON ONLY):
{
  "success": true,
  "productName": "%[1]s",
  "minPrice": 89990,
  "currency": "RUB",
  "bestOffer": {
    "siteName": "store name",
    "price": 89990,
    "productUrl": "https://...",
    "productTitle": "exact listing title",
    "availability": "in stock"
  },
  "allOffers": [
    {"siteName": "store name", "price": 89990, "productUrl": "https://...", "availability": "in stock"}
  ],
  "searchSummary": {
    "totalSitesChecked": 7,
    "sitesWithProduct": 5,
    "priceRange": "89990 - 95000"
  }
}

IF THE PRODUCT IS NOT FOUND:
{
  "success": false,
  "productName": "%[1]s",
  "message": "Product not found at competitors or unavailable for search"
}

IMPORTANT:
- Use only current price information.
- Do NOT invent prices or URLs.
- If you cannot find real prices, return success: false.`

const competitorUserPrompt = `Find the minimum competitor price for the product "%s". Use current information only.`

// marketplaceSystemPrompt targets second-hand marketplace listings. The
// embedded search URL is for display and audit only; the model does the
// searching.
const marketplaceSystemPrompt = `ROLE: used-goods price research specialist for marketplace listings.

TASK: find the minimum price for a USED "%[1]s" in marketplace listings.

SEARCH PLAN:
1. Search marketplace listings nationwide.
2. Sort by price ascending.
3. Consider USED items only, never new ones.

STRICT RESPONSE FORMAT (JSON ONLY):
{
  "success": true,
  "productName": "%[1]s",
  "searchUrl": "%[2]s",
  "minPrice": 45000,
  "currency": "RUB",
  "bestOffer": {
    "title": "listing title",
    "price": 45000,
    "location": "city",
    "url": "https://...",
    "condition": "used"
  },
  "allOffers": [
    {"title": "listing title", "price": 45000, "location": "city", "url": "https://...", "condition": "used"}
  ],
  "searchSummary": {
    "totalOffersFound": 25,
    "priceRange": "45000 - 65000"
  }
}

IF NOTHING IS FOUND:
{
  "success": false,
  "productName": "%[1]s",
  "searchUrl": "%[2]s",
  "message": "No used listings found"
}`

const marketplaceUserPrompt = `Find the minimum price for a used "%s" in marketplace listings nationwide.`
