// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package xproc

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("slab info", func() {

	names := func(slabs []SlabCache) []string {
		n := []string{}
		for _, slab := range slabs {
			n = append(n, slab.Name)
		}
		return n
	}

	It("parses slab caches, skipping headers", func() {
		info := Successful(testHost.SlabInfo())
		Expect(info.Names()).To(HaveExactElements(
			"kmalloc-64", "dentry", "inode_cache", "ext4_inode_cache"))
		dentry, ok := info.Find("dentry")
		Expect(ok).To(BeTrue())
		Expect(dentry).To(Equal(SlabCache{
			Name: "dentry", ActiveObjs: 30000, NumObjs: 31000, ObjSize: 192,
			ObjPerSlab: 21, PagesPerSlab: 1,
			ActiveSlabs: 1476, NumSlabs: 1476,
		}))
		Expect(dentry.Size()).To(Equal(int64(5952000)))
		_, ok = info.Find("nope")
		Expect(ok).To(BeFalse())
	})

	It("returns display attributes", func() {
		info := Successful(testHost.SlabInfo())
		dentry, _ := info.Find("dentry")
		attrs := dentry.Attrs()
		Expect(attrs[0]).To(And(HaveField("Name", SlabName), HaveField("String()", "dentry")))
		Expect(attrs[len(attrs)-1]).To(And(HaveField("Name", SlabSize), HaveField("String()", "5813 kB")))
	})

	DescribeTable("sorting by key",
		func(key byte, top int, expected []string) {
			info := Successful(testHost.SlabInfo())
			Expect(names(Successful(info.Sort(key, top)))).To(Equal(expected))
		},
		Entry("active objects", byte(SortActiveObjs), 0,
			[]string{"dentry", "inode_cache", "ext4_inode_cache", "kmalloc-64"}),
		Entry("objects, stable", byte(SortNumObjs), -1,
			[]string{"dentry", "inode_cache", "kmalloc-64", "ext4_inode_cache"}),
		Entry("object size, top 2", byte(SortObjSize), 2,
			[]string{"ext4_inode_cache", "inode_cache"}),
		Entry("active slabs, top exceeding", byte(SortActiveSlabs), 100,
			[]string{"dentry", "inode_cache", "ext4_inode_cache", "kmalloc-64"}),
		Entry("slabs", byte(SortNumSlabs), 1, []string{"dentry"}),
	)

	It("rejects unknown sort keys", func() {
		info := Successful(testHost.SlabInfo())
		Expect(info.Sort('x', 0)).Error().To(HaveOccurred())
	})

	It("leaves the file order untouched when sorting", func() {
		info := Successful(testHost.SlabInfo())
		_ = Successful(info.Sort(SortObjSize, 0))
		Expect(names(info.Slabs())[0]).To(Equal("kmalloc-64"))
	})

	It("accepts names with punctuation", func() {
		info := Successful(ParseSlabInfo(strings.NewReader(
			"kmalloc-rcl-8k    0   0   8192   4   8 : tunables 0 0 0 : slabdata 0 0 0\n")))
		Expect(info.Names()).To(HaveExactElements("kmalloc-rcl-8k"))
	})

})
