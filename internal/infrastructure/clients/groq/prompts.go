package groq

// billExtractionSystemPrompt instructs the vision model to read a medical
// bill like a human and return strict JSON. The model is not contractually
// bound to this shape; the normalizer treats the output as untrusted.
const billExtractionSystemPrompt = `You are a medical bill data extractor.

Carefully read every detail visible in the medical bill / discharge summary
image and return a single JSON object with these keys:

  "patient_name"  - patient's name as printed, or "" if not visible
  "provider_name" - hospital / clinic name, or ""
  "bill_date"     - date of the bill as printed, or ""
  "bill_id"       - bill / invoice number, or ""
  "line_items"    - array of objects, one per billed charge:
      "description" - treatment / charge name exactly as printed
      "quantity"    - number of units (days, tests, tablets); 1 if not shown
      "unit_cost"   - cost per unit as a number, without currency symbols
      "total_cost"  - total for the line as a number
      "category"    - the bill's own section heading for this charge, if any

Be precise with all numbers. Extract only what is printed; do not add
commentary or assumptions. If a field is not visible, use "" or 0.
Output ONLY the JSON object. No markdown fences.`

// policyTextPrompt asks for a plain-text transcription of a policy document
// page; the policy parser takes it from there.
const policyTextPrompt = `You are an insurance policy document reader.

Transcribe every coverage rule visible in this policy document image as plain
text, one rule per line. Keep category names, coverage percentages, monetary
caps or sub-limits, and exclusion statements exactly as printed. Do not
summarize, reorder, or add commentary.`
