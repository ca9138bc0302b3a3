package toolchain

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ClassifyBanner", func() {
	It("classifies the solver banner with its version", func() {
		kind, version := ClassifyBanner("OpenFAST-v3.5.3\nCompiled as a 64-bit application\n")
		Expect(kind).To(Equal(KindSolver))
		Expect(version).To(Equal("v3.5.3"))
	})

	It("classifies the turbulence banner with a suffixed version", func() {
		kind, version := ClassifyBanner("TurbSim (v2.00.07a-bjj, 14-Jun-2016)")
		Expect(kind).To(Equal(KindTurbulence))
		Expect(version).To(Equal("v2.00.07a-bjj"))
	})

	It("matches markers case-insensitively", func() {
		kind, _ := ClassifyBanner("**** OPENFAST v4.0.0 ****")
		Expect(kind).To(Equal(KindSolver))
	})

	It("tolerates a banner without any version token", func() {
		kind, version := ClassifyBanner("OpenFAST development build")
		Expect(kind).To(Equal(KindSolver))
		Expect(version).To(BeEmpty())
	})

	It("returns unknown for an unrelated banner", func() {
		kind, version := ClassifyBanner("gcc (GCC) 12.2.0")
		Expect(kind).To(Equal(KindUnknown))
		Expect(version).To(BeEmpty())
	})

	It("returns unknown for empty output", func() {
		kind, _ := ClassifyBanner("")
		Expect(kind).To(Equal(KindUnknown))
	})
})

var _ = Describe("versionToken", func() {
	It("pulls a bare dotted version", func() {
		Expect(versionToken("version 3.5.3 of the solver")).To(Equal("3.5.3"))
	})

	It("skips tokens without a dot", func() {
		Expect(versionToken("build 2024 v1")).To(BeEmpty())
	})
})
