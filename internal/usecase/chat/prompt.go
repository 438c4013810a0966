package chat

import "strings"

// Fixed user-facing responses. These are product copy in Bahasa Indonesia;
// the assistant serves Indonesian-speaking users exclusively.
const (
	// offlineResponse is returned while the corpus artifacts are unavailable.
	offlineResponse = "Maaf, database medis sedang offline atau dalam perbaikan."

	// retrievalErrorResponse is returned when embedding or index search fails.
	retrievalErrorResponse = "Terjadi kendala teknis saat mencari data."

	// refusalResponse is the hard stop: no retrieved passage was judged
	// relevant, so no answer is generated at all.
	refusalResponse = "Mohon maaf, saya belum menemukan informasi spesifik mengenai " +
		"keluhan tersebut dalam database referensi medis saya. Mohon sebutkan nama " +
		"penyakit atau gejala secara lebih lengkap agar saya dapat membantu."

	// insufficientContextSentence is the softer, model-enforced fallback the
	// system prompt dictates for sub-questions the context does not cover.
	insufficientContextSentence = "Maaf, referensi saya tidak memuat informasi detil mengenai hal tersebut."
)

// buildSystemPrompt constrains the model to the retrieved passages. The
// numbered rules pin the persona, the response language, the grounding
// restriction and the exact insufficient-context sentence.
func buildSystemPrompt(passages []string) string {
	var b strings.Builder
	b.WriteString("Anda adalah Asisten Medis Profesional bernama MediChat.\n")
	b.WriteString("INSTRUKSI WAJIB:\n")
	b.WriteString("1. GUNAKAN HANYA BAHASA INDONESIA. Jangan gunakan Bahasa Mandarin atau Inggris.\n")
	b.WriteString("2. Jawab pertanyaan HANYA berdasarkan informasi di dalam 'KONTEKS MEDIS' di bawah ini.\n")
	b.WriteString("3. JANGAN mengarang atau menggunakan pengetahuan di luar konteks yang diberikan.\n")
	b.WriteString("4. Jika informasi tidak ada di konteks, katakan: '" + insufficientContextSentence + "'\n\n")
	b.WriteString("KONTEKS MEDIS:\n")
	b.WriteString(strings.Join(passages, "\n\n"))
	return b.String()
}
